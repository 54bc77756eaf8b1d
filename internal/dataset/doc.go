// Package dataset loads tabular files into a local SQLite database and
// answers natural language questions about them by generating and executing
// read-only SQL.
package dataset
