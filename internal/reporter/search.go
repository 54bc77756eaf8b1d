package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/insightlab/insighthub/internal/log"
)

const searchEndpoint = "https://html.duckduckgo.com/html/"

// SearchResult is one entry from a web search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher queries the DuckDuckGo HTML endpoint, which needs no API key and
// returns parseable markup.
type Searcher struct {
	client *http.Client
	logger log.Logger
}

// NewSearcher creates a web searcher using the given HTTP client.
func NewSearcher(client *http.Client, logger log.Logger) (*Searcher, error) {
	if client == nil {
		return nil, errors.New("http client cannot be nil")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Searcher{client: client, logger: logger}, nil
}

// Search runs one query and returns up to maxResults entries.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	results, err := parseSearchResults(resp.Body, maxResults)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

// parseSearchResults extracts result links from DuckDuckGo's HTML markup.
func parseSearchResults(r io.Reader, maxResults int) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	var results []SearchResult
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a")
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		target := resolveRedirect(href)
		if target == "" {
			return true
		}

		results = append(results, SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(sel.Find("a.result__snippet").Text()),
		})
		return len(results) < maxResults
	})

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links to the real
// target URL. Direct links pass through unchanged.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if strings.HasPrefix(u.Path, "/l/") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		if t, err := url.Parse(target); err != nil || t.Scheme == "" {
			return ""
		}
		return target
	}

	if u.Scheme == "" {
		return ""
	}
	return href
}
