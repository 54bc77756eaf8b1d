package reporter

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/insightlab/insighthub/internal/security"
)

const sampleArticleHTML = `<!DOCTYPE html>
<html>
<head><title>Quarterly Revenue Analysis</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>Quarterly Revenue Analysis</h1>
<p>Revenue grew twelve percent quarter over quarter, driven primarily by
expansion in the enterprise segment. Analysts attribute the growth to the
new subscription tiers introduced in the spring release cycle.</p>
<p>Operating margins held steady at twenty one percent despite increased
spending on infrastructure. The company expects margins to compress
slightly next quarter as data center buildout accelerates.</p>
</article>
<footer>Copyright notice</footer>
</body>
</html>`

func TestExtractPage(t *testing.T) {
	page, err := extractPage(strings.NewReader(sampleArticleHTML), "https://example.com/report")
	if err != nil {
		t.Fatalf("extractPage() error: %v", err)
	}

	if page.Title != "Quarterly Revenue Analysis" {
		t.Errorf("title = %q", page.Title)
	}
	if page.URL != "https://example.com/report" {
		t.Errorf("url = %q", page.URL)
	}
	if !strings.Contains(page.Text, "twelve percent") {
		t.Errorf("text missing article body: %q", page.Text)
	}
}

func TestExtractPage_NoContent(t *testing.T) {
	if _, err := extractPage(strings.NewReader("<html><body></body></html>"), "https://example.com/empty"); err == nil {
		t.Error("expected error for page without readable content")
	}
}

func TestExtractPage_TruncatesLongText(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><head><title>Long</title></head><body><article>")
	for range 400 {
		b.WriteString("<p>This paragraph repeats to push the article body over the extraction limit for prompt inclusion.</p>")
	}
	b.WriteString("</article></body></html>")

	page, err := extractPage(strings.NewReader(b.String()), "https://example.com/long")
	if err != nil {
		t.Fatalf("extractPage() error: %v", err)
	}
	if len(page.Text) > maxExtractChars {
		t.Errorf("text length = %d, want <= %d", len(page.Text), maxExtractChars)
	}
}

func TestFetcher_RejectsUnsafeURL(t *testing.T) {
	fetcher, err := NewFetcher(security.NewURL(), nil)
	if err != nil {
		t.Fatalf("NewFetcher() error: %v", err)
	}

	unsafe := []string{
		"http://localhost/admin",
		"http://169.254.169.254/latest/meta-data/",
		"ftp://example.com/file",
	}
	for _, u := range unsafe {
		if _, err := fetcher.Fetch(t.Context(), u); err == nil {
			t.Errorf("Fetch(%q) succeeded, want SSRF rejection", u)
		}
	}
}

func TestFetchAll_SkipsFailures(t *testing.T) {
	// 127.0.0.1 test servers are blocked by the SSRF validator, so exercise
	// the skip path: every URL fails and FetchAll must return empty rather
	// than error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleArticleHTML)
	}))
	defer srv.Close()

	fetcher, err := NewFetcher(security.NewURL(), nil)
	if err != nil {
		t.Fatalf("NewFetcher() error: %v", err)
	}

	pages := fetcher.FetchAll(t.Context(), []string{srv.URL, "http://localhost/x"})
	if len(pages) != 0 {
		t.Errorf("got %d pages, want 0 for blocked loopback URLs", len(pages))
	}
}
