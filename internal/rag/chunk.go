package rag

import "strings"

// MaxChunkSize is the largest chunk passed to the embedder. The embedding
// model truncates around 2048 tokens; 6KB of text stays safely under that.
const MaxChunkSize = 6 * 1024

// chunkOverlap carries trailing context into the next chunk so sentences
// split at a boundary remain retrievable.
const chunkOverlap = 256

// splitChunks splits content into chunks of at most MaxChunkSize bytes,
// preferring paragraph boundaries, then line boundaries, and falling back
// to a hard split. Content at or under the limit is returned as-is.
func splitChunks(content string) []string {
	if len(content) <= MaxChunkSize {
		return []string{content}
	}

	var chunks []string
	rest := content
	for len(rest) > MaxChunkSize {
		cut := boundaryBefore(rest, MaxChunkSize)
		chunks = append(chunks, rest[:cut])

		next := cut - chunkOverlap
		if next <= 0 || next <= cut-len(rest) {
			next = cut
		}
		rest = rest[next:]
	}
	if strings.TrimSpace(rest) != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// boundaryBefore finds the best split point at or before limit.
func boundaryBefore(s string, limit int) int {
	window := s[:limit]

	if i := strings.LastIndex(window, "\n\n"); i > limit/2 {
		return i + 2
	}
	if i := strings.LastIndex(window, "\n"); i > limit/2 {
		return i + 1
	}
	if i := strings.LastIndex(window, " "); i > limit/2 {
		return i + 1
	}
	return limit
}
