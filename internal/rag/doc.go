// Package rag implements the document RAG agent: local file ingestion into
// the knowledge store, a Genkit retriever bridge, and grounded question
// answering with source citations.
package rag
