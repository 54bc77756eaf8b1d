package reporter

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/insightlab/insighthub/internal/log"
)

// roundTripFunc stubs an HTTP client so the searcher never leaves the test.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubSearchClient(body string) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}),
	}
}

func TestResearch_EmptyYieldIsNotFatal(t *testing.T) {
	const noResultsHTML = `<html><body><div class="results"></div></body></html>`

	searcher, err := NewSearcher(stubSearchClient(noResultsHTML), log.NewNop())
	if err != nil {
		t.Fatalf("NewSearcher() error: %v", err)
	}

	agent := &Agent{searcher: searcher, maxSources: 6, logger: log.NewNop()}

	pages, err := agent.research(context.Background(), []string{"obscure topic", "another angle"})
	if err != nil {
		t.Fatalf("research() with no results should not fail, got: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("got %d pages, want 0", len(pages))
	}
}

func TestEmptyYieldReport(t *testing.T) {
	report := emptyYieldReport("warp drives", "Warp Drive Survey", []string{"warp drive physics", "alcubierre metric"})

	if !strings.HasPrefix(report, "# Warp Drive Survey\n") {
		t.Errorf("report missing title heading:\n%s", report)
	}
	if !strings.Contains(report, `"warp drives"`) {
		t.Errorf("report missing topic:\n%s", report)
	}
	if !strings.Contains(report, "- alcubierre metric\n") {
		t.Errorf("report missing attempted queries:\n%s", report)
	}
}

func TestEmptyYieldReport_NoQueries(t *testing.T) {
	report := emptyYieldReport("a topic", "A Topic", nil)

	if strings.Contains(report, "Queries attempted") {
		t.Errorf("report should omit query section when none were planned:\n%s", report)
	}
}
