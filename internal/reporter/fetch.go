package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/security"
)

const (
	userAgent = "InsightHub/1.0 (research agent)"

	// maxExtractChars bounds how much article text one page contributes to
	// the prompt.
	maxExtractChars = 12000

	// fetchConcurrency caps parallel page downloads.
	fetchConcurrency = 4
)

// Page is the readable content extracted from one fetched URL.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	SiteName string `json:"site_name"`
	Excerpt  string `json:"excerpt"`
	Text     string `json:"text"`
}

// Fetcher downloads pages through the SSRF-validating client and extracts
// readable article text.
type Fetcher struct {
	validator *security.URL
	client    *http.Client
	logger    log.Logger
}

// NewFetcher creates a page fetcher.
func NewFetcher(validator *security.URL, logger log.Logger) (*Fetcher, error) {
	if validator == nil {
		return nil, errors.New("url validator cannot be nil")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Fetcher{
		validator: validator,
		client:    validator.Client(),
		logger:    logger,
	}, nil
}

// Fetch downloads one page and extracts its article content.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if err := f.validator.Validate(pageURL); err != nil {
		return nil, fmt.Errorf("validating url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, f.validator.MaxBodySize())
	return extractPage(body, pageURL)
}

// FetchAll downloads pages concurrently, skipping failures. Results keep the
// input order with failed URLs omitted.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Page {
	pages := make([]*Page, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, u := range urls {
		g.Go(func() error {
			page, err := f.Fetch(gctx, u)
			if err != nil {
				// A single unreachable source should not fail the report.
				f.logger.Warn("skipping source", "url", u, "error", err)
				return nil
			}
			mu.Lock()
			pages[i] = page
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Page, 0, len(urls))
	for _, p := range pages {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// extractPage runs readability extraction over raw HTML.
func extractPage(r io.Reader, pageURL string) (*Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	article, err := readability.FromReader(r, parsed)
	if err != nil {
		return nil, fmt.Errorf("extracting article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, errors.New("page has no readable content")
	}
	if len(text) > maxExtractChars {
		text = text[:maxExtractChars]
	}

	return &Page{
		URL:      pageURL,
		Title:    strings.TrimSpace(article.Title),
		SiteName: article.SiteName,
		Excerpt:  strings.TrimSpace(article.Excerpt),
		Text:     text,
	}, nil
}
