package knowledge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/insightlab/insighthub/internal/testutil"
)

// stubEmbedder maps keyword hits to fixed axes so cosine ordering in tests
// is deterministic without a model call.
type stubEmbedder struct{}

func (stubEmbedder) Name() string { return "stub-embedder" }

func (stubEmbedder) Register(api.Registry) {}

func (stubEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	out := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		var text strings.Builder
		for _, part := range doc.Content {
			text.WriteString(part.Text)
		}
		out[i] = &ai.Embedding{Embedding: embedText(text.String())}
	}
	return &ai.EmbedResponse{Embeddings: out}, nil
}

func embedText(text string) []float32 {
	vec := make([]float32, int(VectorDimension))
	lower := strings.ToLower(text)
	hit := false
	for axis, word := range []string{"storage", "network", "compute"} {
		if strings.Contains(lower, word) {
			vec[axis] = 1
			hit = true
		}
	}
	if !hit {
		vec[3] = 1
	}
	return vec
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil, nil); err == nil {
		t.Error("New() with nil pool should fail")
	}
}

func TestBuildSearchConfig_Defaults(t *testing.T) {
	cfg := buildSearchConfig(nil)
	if cfg.topK != 5 {
		t.Errorf("default topK = %d, want 5", cfg.topK)
	}
	if cfg.filter != nil {
		t.Errorf("default filter = %v, want nil", cfg.filter)
	}
}

func TestBuildSearchConfig_Options(t *testing.T) {
	cfg := buildSearchConfig([]SearchOption{
		WithTopK(3),
		WithFilter("source_type", SourceTypeFile),
		WithFilter("path", "README.md"),
	})

	if cfg.topK != 3 {
		t.Errorf("topK = %d, want 3", cfg.topK)
	}
	if got := cfg.filter["source_type"]; got != SourceTypeFile {
		t.Errorf("filter[source_type] = %q, want %q", got, SourceTypeFile)
	}
	if got := cfg.filter["path"]; got != "README.md" {
		t.Errorf("filter[path] = %q, want %q", got, "README.md")
	}
}

func TestDocumentZeroTime(t *testing.T) {
	doc := Document{ID: "doc-1", Content: "hello"}
	if !doc.CreateAt.IsZero() {
		t.Error("expected zero CreateAt on fresh document")
	}

	doc.CreateAt = time.Now()
	if doc.CreateAt.IsZero() {
		t.Error("CreateAt should be set")
	}
}

func newContainerStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	store, err := New(testutil.StartPostgres(t), stubEmbedder{}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return store
}

func addTestDocs(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()

	docs := []Document{
		{ID: "doc-storage", Content: "The storage layer compacts segments nightly.", Metadata: map[string]string{"source_type": "file", "team": "infra"}},
		{ID: "doc-network", Content: "The network mesh retries with jittered backoff.", Metadata: map[string]string{"source_type": "file", "team": "platform"}},
		{ID: "doc-mixed", Content: "Moving storage traffic off the network fabric.", Metadata: map[string]string{"source_type": "url"}},
	}
	for _, doc := range docs {
		if err := store.Add(ctx, doc); err != nil {
			t.Fatalf("Add(%s) error: %v", doc.ID, err)
		}
	}
}

func TestStore_Search_OrdersByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)
	addTestDocs(t, store)

	results, err := store.Search(ctx, "storage", WithTopK(3))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// Pure storage doc first, the storage+network doc second, pure
	// network doc last.
	if results[0].Document.ID != "doc-storage" {
		t.Errorf("top result = %s, want doc-storage", results[0].Document.ID)
	}
	if results[1].Document.ID != "doc-mixed" {
		t.Errorf("second result = %s, want doc-mixed", results[1].Document.ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not ordered by similarity: %v then %v",
				results[i-1].Similarity, results[i].Similarity)
		}
	}
}

func TestStore_Search_AppliesMetadataFilter(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)
	addTestDocs(t, store)

	results, err := store.Search(ctx, "storage", WithTopK(5), WithFilter("source_type", "file"))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	for _, res := range results {
		if res.Document.Metadata["source_type"] != "file" {
			t.Errorf("filtered search returned %s with source_type %q",
				res.Document.ID, res.Document.Metadata["source_type"])
		}
	}
	if len(results) != 2 {
		t.Errorf("got %d filtered results, want 2", len(results))
	}
}

func TestStore_Add_UpsertsByID(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)

	doc := Document{ID: "doc-1", Content: "network mesh overview", Metadata: map[string]string{"rev": "1"}}
	if err := store.Add(ctx, doc); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	doc.Content = "storage compaction overview"
	doc.Metadata = map[string]string{"rev": "2"}
	if err := store.Add(ctx, doc); err != nil {
		t.Fatalf("re-Add() error: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after upsert", count)
	}

	results, err := store.Search(ctx, "storage", WithTopK(1))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].Document.Metadata["rev"] != "2" {
		t.Errorf("search after upsert = %+v, want rev 2 content", results)
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)
	addTestDocs(t, store)

	if err := store.Delete(ctx, "doc-storage"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	// Unknown IDs delete without error.
	if err := store.Delete(ctx, "doc-storage"); err != nil {
		t.Errorf("second Delete() error: %v", err)
	}

	files, err := store.ListBySourceType(ctx, "file", 10)
	if err != nil {
		t.Fatalf("ListBySourceType() error: %v", err)
	}
	if len(files) != 1 || files[0].ID != "doc-network" {
		t.Errorf("ListBySourceType() = %+v, want only doc-network", files)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2 after delete", count)
	}
}
