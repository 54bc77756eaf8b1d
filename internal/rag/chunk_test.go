package rag

import (
	"strings"
	"testing"
)

func TestSplitChunks_SmallContentUnchanged(t *testing.T) {
	content := "short document"
	chunks := splitChunks(content)
	if len(chunks) != 1 || chunks[0] != content {
		t.Fatalf("splitChunks() = %v, want single unchanged chunk", chunks)
	}
}

func TestSplitChunks_RespectsMaxSize(t *testing.T) {
	paragraph := strings.Repeat("word ", 200) + "\n\n"
	content := strings.Repeat(paragraph, 30) // well over MaxChunkSize

	chunks := splitChunks(content)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > MaxChunkSize {
			t.Errorf("chunk %d is %d bytes, exceeds MaxChunkSize %d", i, len(chunk), MaxChunkSize)
		}
	}
}

func TestSplitChunks_PrefersParagraphBoundary(t *testing.T) {
	first := strings.Repeat("a", MaxChunkSize-100)
	content := first + "\n\n" + strings.Repeat("b", 500)

	chunks := splitChunks(content)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "a") || strings.Contains(chunks[0], "b") {
		t.Errorf("first chunk should end at the paragraph boundary")
	}
}

func TestSplitChunks_NoContentLost(t *testing.T) {
	content := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 400)

	chunks := splitChunks(content)
	joined := strings.Join(chunks, "")
	// Overlap duplicates some text, so joined must contain at least the
	// original amount; nothing may be dropped.
	if len(joined) < len(content) {
		t.Errorf("joined chunk length %d < original %d; content was lost", len(joined), len(content))
	}
}
