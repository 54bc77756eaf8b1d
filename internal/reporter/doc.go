// Package reporter implements the autonomous reporting agent. Given a topic
// it plans research queries, searches the web, extracts readable article
// text from the results and writes a cited markdown report saved as an
// artifact.
package reporter
