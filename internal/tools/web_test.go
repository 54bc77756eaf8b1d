package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/insightlab/insighthub/internal/reporter"
	"github.com/insightlab/insighthub/internal/security"
)

// stubSearcher records the requested result count and returns canned hits.
type stubSearcher struct {
	gotMax  int
	results []reporter.SearchResult
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _ string, maxResults int) ([]reporter.SearchResult, error) {
	s.gotMax = maxResults
	return s.results, s.err
}

func newWebToolsetForTest(t *testing.T, searcher webSearcher) *WebToolset {
	t.Helper()
	wt, err := NewWebToolset(security.NewURL(), searcher, nil)
	if err != nil {
		t.Fatalf("NewWebToolset() error = %v", err)
	}
	return wt
}

func TestWebToolset_Search(t *testing.T) {
	stub := &stubSearcher{results: []reporter.SearchResult{
		{Title: "Go", URL: "https://go.dev", Snippet: "The Go programming language"},
	}}
	wt := newWebToolsetForTest(t, stub)
	ctx := &ai.ToolContext{Context: context.Background()}

	out, err := wt.Search(ctx, WebSearchInput{Query: "golang"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(out.Results))
	}
	if out.Results[0].URL != "https://go.dev" {
		t.Errorf("results[0].URL = %q, want https://go.dev", out.Results[0].URL)
	}
	if stub.gotMax != defaultSearchResults {
		t.Errorf("max results = %d, want default %d", stub.gotMax, defaultSearchResults)
	}
}

func TestWebToolset_Search_ClampsMaxResults(t *testing.T) {
	stub := &stubSearcher{}
	wt := newWebToolsetForTest(t, stub)
	ctx := &ai.ToolContext{Context: context.Background()}

	if _, err := wt.Search(ctx, WebSearchInput{Query: "golang", MaxResults: 100}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if stub.gotMax != maxSearchResults {
		t.Errorf("max results = %d, want clamped %d", stub.gotMax, maxSearchResults)
	}
}

func TestWebToolset_Search_EmptyQuery(t *testing.T) {
	wt := newWebToolsetForTest(t, &stubSearcher{})
	ctx := &ai.ToolContext{Context: context.Background()}

	if _, err := wt.Search(ctx, WebSearchInput{}); err == nil {
		t.Error("Search() with empty query should return error")
	}
}

func TestWebToolset_Search_BackendError(t *testing.T) {
	wt := newWebToolsetForTest(t, &stubSearcher{err: errors.New("search engine down")})
	ctx := &ai.ToolContext{Context: context.Background()}

	if _, err := wt.Search(ctx, WebSearchInput{Query: "golang"}); err == nil {
		t.Error("Search() should surface backend errors")
	}
}

func TestWebToolset_Fetch_RejectsUnsafeURL(t *testing.T) {
	wt := newWebToolsetForTest(t, nil)
	ctx := &ai.ToolContext{Context: context.Background()}

	for _, url := range []string{
		"http://localhost:8080/admin",
		"http://169.254.169.254/latest/meta-data/",
		"ftp://example.com/file",
	} {
		if _, err := wt.Fetch(ctx, WebFetchInput{URL: url}); err == nil {
			t.Errorf("Fetch(%q) should be rejected", url)
		}
	}
}
