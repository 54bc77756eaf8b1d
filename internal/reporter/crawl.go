package reporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gocolly/colly/v2"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/security"
)

// Crawler follows links within a single site to gather additional pages when
// one source is not enough. It stays on the starting domain and stops at a
// page cap.
type Crawler struct {
	validator *security.URL
	maxPages  int
	maxDepth  int
	logger    log.Logger
}

// NewCrawler creates a site crawler. Depth counts link hops from the start
// page; depth 1 means the start page only.
func NewCrawler(validator *security.URL, maxPages, maxDepth int, logger log.Logger) (*Crawler, error) {
	if validator == nil {
		return nil, errors.New("url validator cannot be nil")
	}
	if maxPages <= 0 {
		maxPages = 5
	}
	if maxDepth <= 0 {
		maxDepth = 2
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Crawler{
		validator: validator,
		maxPages:  maxPages,
		maxDepth:  maxDepth,
		logger:    logger,
	}, nil
}

// Crawl visits startURL and same-domain pages linked from it, returning the
// readable content of each page reached before the cap.
func (c *Crawler) Crawl(ctx context.Context, startURL string) ([]Page, error) {
	if err := c.validator.Validate(startURL); err != nil {
		return nil, fmt.Errorf("validating start url: %w", err)
	}

	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("parsing start url: %w", err)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(start.Hostname()),
		colly.MaxDepth(c.maxDepth),
		colly.UserAgent(userAgent),
		colly.Async(true),
	)
	collector.WithTransport(c.validator.Client().Transport)
	if err := collector.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 2}); err != nil {
		return nil, fmt.Errorf("configuring crawl limits: %w", err)
	}

	var (
		mu    sync.Mutex
		pages []Page
	)

	collector.OnRequest(func(r *colly.Request) {
		mu.Lock()
		full := len(pages) >= c.maxPages
		mu.Unlock()
		if full || ctx.Err() != nil {
			r.Abort()
			return
		}
		if err := c.validator.Validate(r.URL.String()); err != nil {
			c.logger.Warn("crawl blocked url", "url", r.URL.String(), "error", err)
			r.Abort()
		}
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || strings.Contains(link, "#") {
			return
		}
		_ = e.Request.Visit(link)
	})

	collector.OnResponse(func(r *colly.Response) {
		page, err := extractPage(bytes.NewReader(r.Body), r.Request.URL.String())
		if err != nil {
			return
		}
		mu.Lock()
		if len(pages) < c.maxPages {
			pages = append(pages, *page)
		}
		mu.Unlock()
	})

	if err := collector.Visit(startURL); err != nil {
		return nil, fmt.Errorf("starting crawl: %w", err)
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return pages, err
	}

	c.logger.Info("crawl completed", "start_url", startURL, "pages", len(pages))
	return pages, nil
}
