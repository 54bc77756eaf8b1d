package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/reporter"
	"github.com/insightlab/insighthub/internal/security"
)

// FetchURLName is the Genkit tool name for web fetches.
const FetchURLName = "fetch_url"

// SearchWebName is the Genkit tool name for web searches.
const SearchWebName = "search_web"

// Search result limits for the search_web tool.
const (
	defaultSearchResults = 5
	maxSearchResults     = 10
)

// WebFetchInput is the input schema for fetch_url.
type WebFetchInput struct {
	URL string `json:"url" jsonschema_description:"The http or https URL to fetch"`
}

// WebFetchOutput is the output schema for fetch_url.
type WebFetchOutput struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// WebSearchInput is the input schema for search_web.
type WebSearchInput struct {
	Query      string `json:"query" jsonschema_description:"The search query"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema_description:"Maximum number of results to return (default 5, max 10)"`
}

// WebSearchResult is a single search hit.
type WebSearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearchOutput is the output schema for search_web.
type WebSearchOutput struct {
	Results []WebSearchResult `json:"results"`
}

// webSearcher abstracts the search backend (implemented by
// reporter.Searcher) so tests can stub it.
type webSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]reporter.SearchResult, error)
}

// WebToolset gives the chat agent HTTP GET access behind the SSRF
// validator: private networks, loopback and metadata endpoints are blocked
// and resolved IPs are re-checked at dial time.
type WebToolset struct {
	validator *security.URL
	client    *http.Client
	searcher  webSearcher
	logger    log.Logger
}

// NewWebToolset creates the web toolset. searcher may be nil, which
// disables the search_web tool.
func NewWebToolset(validator *security.URL, searcher webSearcher, logger log.Logger) (*WebToolset, error) {
	if validator == nil {
		return nil, errors.New("url validator is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &WebToolset{
		validator: validator,
		client:    validator.Client(),
		searcher:  searcher,
		logger:    logger,
	}, nil
}

// Register defines the toolset's tools with Genkit.
func (wt *WebToolset) Register(g *genkit.Genkit) []ai.Tool {
	tools := []ai.Tool{
		genkit.DefineTool(g, FetchURLName,
			"Fetch a web page via HTTP GET and return its raw body. "+
				"Private addresses, localhost and cloud metadata endpoints are blocked. "+
				"Use this to read public pages the user references.",
			wt.Fetch),
	}
	if wt.searcher != nil {
		tools = append(tools, genkit.DefineTool(g, SearchWebName,
			"Search the web and return result titles, URLs and snippets. "+
				"Use this to find current information, then fetch_url to read a result.",
			wt.Search))
	}
	return tools
}

// Search handles the search_web tool call.
func (wt *WebToolset) Search(ctx *ai.ToolContext, input WebSearchInput) (WebSearchOutput, error) {
	if input.Query == "" {
		return WebSearchOutput{}, errors.New("query is required")
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	hits, err := wt.searcher.Search(ctx, input.Query, maxResults)
	if err != nil {
		wt.logger.Warn("search_web failed", "query", input.Query, "error", err)
		return WebSearchOutput{}, fmt.Errorf("searching: %w", err)
	}

	results := make([]WebSearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, WebSearchResult{
			Title:   h.Title,
			URL:     h.URL,
			Snippet: h.Snippet,
		})
	}
	return WebSearchOutput{Results: results}, nil
}

// Fetch handles the fetch_url tool call.
func (wt *WebToolset) Fetch(ctx *ai.ToolContext, input WebFetchInput) (WebFetchOutput, error) {
	if input.URL == "" {
		return WebFetchOutput{}, errors.New("url is required")
	}
	if err := wt.validator.Validate(input.URL); err != nil {
		wt.logger.Warn("fetch_url blocked", "url", input.URL, "error", err)
		return WebFetchOutput{}, fmt.Errorf("url rejected: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return WebFetchOutput{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := wt.client.Do(req)
	if err != nil {
		return WebFetchOutput{}, fmt.Errorf("fetching url: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, wt.validator.MaxBodySize()))
	if err != nil {
		return WebFetchOutput{}, fmt.Errorf("reading response: %w", err)
	}

	wt.logger.Debug("fetch_url tool called", "url", input.URL, "status", resp.StatusCode, "bytes", len(body))
	return WebFetchOutput{
		URL:    input.URL,
		Status: resp.StatusCode,
		Body:   string(body),
	}, nil
}
