package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/insightlab/insighthub/internal/knowledge"
)

// mockStore implements IndexerStore for testing.
type mockStore struct {
	docs    map[string]knowledge.Document
	addErr  error
	deleted []string
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string]knowledge.Document)}
}

func (m *mockStore) Add(ctx context.Context, doc knowledge.Document) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockStore) ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]knowledge.Document, error) {
	var out []knowledge.Document
	for _, doc := range m.docs {
		if doc.Metadata["source_type"] == sourceType {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *mockStore) Delete(ctx context.Context, docID string) error {
	m.deleted = append(m.deleted, docID)
	delete(m.docs, docID)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestAddFile(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	idx := NewIndexer(store, nil)

	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "# Notes\n\nsome content")

	chunks, err := idx.AddFile(ctx, path)
	if err != nil {
		t.Fatalf("AddFile() error: %v", err)
	}
	if chunks != 1 {
		t.Errorf("AddFile() chunks = %d, want 1", chunks)
	}
	if len(store.docs) != 1 {
		t.Fatalf("store has %d docs, want 1", len(store.docs))
	}

	for _, doc := range store.docs {
		if doc.Metadata["source_type"] != knowledge.SourceTypeFile {
			t.Errorf("source_type = %q, want %q", doc.Metadata["source_type"], knowledge.SourceTypeFile)
		}
		if doc.Metadata["file_name"] != "notes.md" {
			t.Errorf("file_name = %q, want notes.md", doc.Metadata["file_name"])
		}
		if !strings.HasPrefix(doc.ID, "file:") {
			t.Errorf("doc ID = %q, want file: prefix", doc.ID)
		}
	}
}

func TestAddFile_UnsupportedExtension(t *testing.T) {
	ctx := context.Background()
	idx := NewIndexer(newMockStore(), nil)

	dir := t.TempDir()
	path := writeFile(t, dir, "image.bin", "\x00\x01")

	if _, err := idx.AddFile(ctx, path); err == nil {
		t.Error("expected unsupported file type error")
	}
}

func TestAddFile_ChunksLargeFiles(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	idx := NewIndexer(store, nil)

	dir := t.TempDir()
	big := strings.Repeat("paragraph of text\n\n", MaxChunkSize/10)
	path := writeFile(t, dir, "big.txt", big)

	chunks, err := idx.AddFile(ctx, path)
	if err != nil {
		t.Fatalf("AddFile() error: %v", err)
	}
	if chunks < 2 {
		t.Errorf("AddFile() chunks = %d, want >= 2 for oversized file", chunks)
	}
	if len(store.docs) != chunks {
		t.Errorf("store has %d docs, want %d", len(store.docs), chunks)
	}
}

func TestAddFile_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	idx := NewIndexer(store, nil)

	dir := t.TempDir()
	path := writeFile(t, dir, "dup.txt", "same content")

	for range 2 {
		if _, err := idx.AddFile(ctx, path); err != nil {
			t.Fatalf("AddFile() error: %v", err)
		}
	}

	// Same path -> same document ID -> upsert, not duplicate.
	if len(store.docs) != 1 {
		t.Errorf("store has %d docs after re-index, want 1", len(store.docs))
	}
}

func TestAddFile_StoreError(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addErr = errors.New("db down")
	idx := NewIndexer(store, nil)

	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "content")

	if _, err := idx.AddFile(ctx, path); err == nil {
		t.Error("expected store error to propagate")
	}
}

func TestAddDirectory(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	idx := NewIndexer(store, nil)

	dir := t.TempDir()
	writeFile(t, dir, "a.md", "alpha")
	writeFile(t, dir, "b.txt", "beta")
	writeFile(t, dir, "skip.bin", "binary")

	result, err := idx.AddDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("AddDirectory() error: %v", err)
	}

	if result.FilesAdded != 2 {
		t.Errorf("FilesAdded = %d, want 2", result.FilesAdded)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", result.FilesSkipped)
	}
	if result.ChunksAdded != 2 {
		t.Errorf("ChunksAdded = %d, want 2", result.ChunksAdded)
	}
}

func TestAddDirectory_HonorsGitignore(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	idx := NewIndexer(store, nil)

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "ignored.md\n")
	writeFile(t, dir, "ignored.md", "should not be indexed")
	writeFile(t, dir, "kept.md", "should be indexed")

	result, err := idx.AddDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("AddDirectory() error: %v", err)
	}

	if result.FilesAdded != 1 {
		t.Errorf("FilesAdded = %d, want 1", result.FilesAdded)
	}
	for _, doc := range store.docs {
		if doc.Metadata["file_name"] == "ignored.md" {
			t.Error("gitignored file was indexed")
		}
	}
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	idx := NewIndexer(store, nil)

	if err := idx.RemoveDocument(ctx, "file:abc"); err != nil {
		t.Fatalf("RemoveDocument() error: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "file:abc" {
		t.Errorf("deleted = %v, want [file:abc]", store.deleted)
	}
}

func TestGenerateDocID_Stable(t *testing.T) {
	a := generateDocID("/tmp/x.txt", 0)
	b := generateDocID("/tmp/x.txt", 0)
	c := generateDocID("/tmp/x.txt", 1)

	if a != b {
		t.Error("same path and chunk should produce the same ID")
	}
	if a == c {
		t.Error("different chunks should produce different IDs")
	}
}
