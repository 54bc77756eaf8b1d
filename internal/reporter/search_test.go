package reporter

import (
	"strings"
	"testing"
)

const sampleResultsHTML = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result results_links">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Farticle&amp;rut=abc">Example Article</a>
    </h2>
    <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Farticle">A useful snippet about the article.</a>
  </div>
  <div class="result results_links">
    <h2 class="result__title">
      <a class="result__a" href="https://direct.example.org/page">Direct Result</a>
    </h2>
    <a class="result__snippet" href="https://direct.example.org/page">Direct snippet.</a>
  </div>
  <div class="result results_links">
    <h2 class="result__title">
      <a class="result__a" href="https://third.example.net/x">Third Result</a>
    </h2>
  </div>
</div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	results, err := parseSearchResults(strings.NewReader(sampleResultsHTML), 10)
	if err != nil {
		t.Fatalf("parseSearchResults() error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	first := results[0]
	if first.Title != "Example Article" {
		t.Errorf("title = %q, want Example Article", first.Title)
	}
	if first.URL != "https://example.com/article" {
		t.Errorf("url = %q, want unwrapped redirect target", first.URL)
	}
	if first.Snippet != "A useful snippet about the article." {
		t.Errorf("snippet = %q", first.Snippet)
	}

	if results[1].URL != "https://direct.example.org/page" {
		t.Errorf("direct url = %q", results[1].URL)
	}
}

func TestParseSearchResults_RespectsMax(t *testing.T) {
	results, err := parseSearchResults(strings.NewReader(sampleResultsHTML), 2)
	if err != nil {
		t.Fatalf("parseSearchResults() error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestParseSearchResults_EmptyPage(t *testing.T) {
	results, err := parseSearchResults(strings.NewReader("<html><body></body></html>"), 5)
	if err != nil {
		t.Fatalf("parseSearchResults() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{
			name: "redirect link",
			href: "//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=x",
			want: "https://example.com/page",
		},
		{
			name: "direct link",
			href: "https://example.org/direct",
			want: "https://example.org/direct",
		},
		{
			name: "redirect without target",
			href: "//duckduckgo.com/l/?rut=x",
			want: "",
		},
		{
			name: "relative link",
			href: "/settings",
			want: "",
		},
		{
			name: "redirect with relative target",
			href: "//duckduckgo.com/l/?uddg=%2Fother",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveRedirect(tt.href); got != tt.want {
				t.Errorf("resolveRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}
