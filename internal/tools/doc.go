// Package tools defines the Genkit tools available to the chat agent:
// knowledge base search, dataset queries, web fetch and confined file
// reads. Each toolset validates its inputs and enforces resource limits
// before touching the underlying store or network.
package tools
