package reporter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/artifact"
	"github.com/insightlab/insighthub/internal/catalog"
	"github.com/insightlab/insighthub/internal/log"
)

// Description is the catalog entry for the autonomous reporter agent.
const Description = "Researches a topic on the web autonomously: plans search queries, gathers and reads sources, then writes a cited markdown report saved as an artifact."

const planSystemPrompt = `You are a research planner. Given a topic, produce a short
report title and 2 to 4 focused web search queries that together cover the
topic from different angles. Queries should be specific enough to surface
primary sources rather than aggregator pages.`

const writeSystemPrompt = `You are a research writer. Using only the numbered sources
provided, write a well-structured markdown report on the given topic.

Requirements:
- Start with a # title and a short executive summary.
- Organize the body into ## sections with descriptive headings.
- Cite sources inline as [n] matching the source numbers.
- Only state facts supported by the sources. Note open questions where the
  sources disagree or are silent.
- End with a "## Sources" section listing each source as "[n] Title - URL".`

// researchPlan is the structured output requested from the planning step.
type researchPlan struct {
	Title   string   `json:"title" jsonschema_description:"Short report title for the topic"`
	Queries []string `json:"queries" jsonschema_description:"2 to 4 focused web search queries"`
}

// Agent is the autonomous reporter. It plans queries, searches, fetches and
// reads sources concurrently, and writes a cited report persisted through
// the artifact store.
type Agent struct {
	g          *genkit.Genkit
	searcher   *Searcher
	fetcher    *Fetcher
	crawler    *Crawler
	artifacts  *artifact.Store
	modelName  string
	maxSources int
	logger     log.Logger
}

// NewAgent creates the reporter agent. maxSources caps how many pages feed
// one report.
func NewAgent(g *genkit.Genkit, searcher *Searcher, fetcher *Fetcher, crawler *Crawler, artifacts *artifact.Store, modelName string, maxSources int, logger log.Logger) (*Agent, error) {
	if g == nil {
		return nil, errors.New("genkit instance cannot be nil")
	}
	if searcher == nil {
		return nil, errors.New("searcher cannot be nil")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if crawler == nil {
		return nil, errors.New("crawler cannot be nil")
	}
	if artifacts == nil {
		return nil, errors.New("artifact store cannot be nil")
	}
	if modelName == "" {
		return nil, errors.New("model name cannot be empty")
	}
	if maxSources <= 0 {
		maxSources = 6
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Agent{
		g:          g,
		searcher:   searcher,
		fetcher:    fetcher,
		crawler:    crawler,
		artifacts:  artifacts,
		modelName:  modelName,
		maxSources: maxSources,
		logger:     logger,
	}, nil
}

// Name implements catalog.Agent.
func (a *Agent) Name() string { return catalog.NameReporter }

// Description implements catalog.Agent.
func (a *Agent) Description() string { return Description }

// Run implements catalog.Agent. The input is the report topic. Setting
// req.Options["site"] to a URL scopes research to that site via the crawler
// instead of web search.
func (a *Agent) Run(ctx context.Context, req catalog.Request) (*catalog.Result, error) {
	topic := strings.TrimSpace(req.Input)
	if topic == "" {
		return nil, errors.New("topic cannot be empty")
	}

	start := time.Now()

	plan, err := a.plan(ctx, topic)
	if err != nil {
		return nil, err
	}
	a.logger.Info("research planned", "topic", topic, "queries", len(plan.Queries))

	var pages []Page
	if site := strings.TrimSpace(req.Options["site"]); site != "" {
		pages, err = a.crawler.Crawl(ctx, site)
	} else {
		pages, err = a.research(ctx, plan.Queries)
	}
	if err != nil {
		return nil, err
	}

	var report string
	if len(pages) == 0 {
		// An empty yield still produces a report saying so; only the
		// research itself failing is fatal.
		a.logger.Warn("research yielded no readable sources", "topic", topic)
		report = emptyYieldReport(topic, plan.Title, plan.Queries)
	} else {
		report, err = a.write(ctx, topic, plan.Title, pages)
		if err != nil {
			return nil, err
		}
	}

	art, err := a.artifacts.Save(plan.Title, report)
	if err != nil {
		return nil, err
	}

	sources := make([]string, len(pages))
	for i, p := range pages {
		sources[i] = p.URL
	}

	a.logger.Info("report completed",
		"topic", topic,
		"sources", len(pages),
		"artifact", art.Name,
		"duration", time.Since(start))

	return &catalog.Result{
		Output:  report,
		Sources: sources,
		Metadata: map[string]string{
			"title":         plan.Title,
			"artifact_name": art.Name,
			"artifact_path": art.Path,
			"source_count":  fmt.Sprint(len(pages)),
		},
	}, nil
}

// plan asks the model for a title and search queries.
func (a *Agent) plan(ctx context.Context, topic string) (*researchPlan, error) {
	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(planSystemPrompt),
		ai.WithPrompt("Topic: %s", topic),
		ai.WithOutputType(researchPlan{}),
	)
	if err != nil {
		return nil, fmt.Errorf("planning research: %w", err)
	}

	var plan researchPlan
	if err := resp.Output(&plan); err != nil {
		return nil, fmt.Errorf("decoding research plan: %w", err)
	}
	if len(plan.Queries) == 0 {
		// Fall back to the topic itself rather than failing the run.
		plan.Queries = []string{topic}
	}
	if plan.Title == "" {
		plan.Title = topic
	}
	return &plan, nil
}

// research runs every planned query, deduplicates the result URLs and
// fetches the top sources concurrently.
func (a *Agent) research(ctx context.Context, queries []string) ([]Page, error) {
	perQuery := max(a.maxSources/len(queries), 2)

	seen := make(map[string]bool)
	var urls []string
	for _, query := range queries {
		results, err := a.searcher.Search(ctx, query, perQuery)
		if err != nil {
			a.logger.Warn("search failed, continuing with remaining queries",
				"query", query, "error", err)
			continue
		}
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			urls = append(urls, r.URL)
		}
	}

	if len(urls) == 0 {
		return nil, nil
	}
	if len(urls) > a.maxSources {
		urls = urls[:a.maxSources]
	}

	return a.fetcher.FetchAll(ctx, urls), nil
}

// write generates the final report from the gathered sources.
func (a *Agent) write(ctx context.Context, topic, title string, pages []Page) (string, error) {
	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(writeSystemPrompt),
		ai.WithPrompt("Topic: %s\nReport title: %s\n\n%s", topic, title, renderSources(pages)),
	)
	if err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	report := strings.TrimSpace(resp.Text())
	if report == "" {
		return "", errors.New("model returned an empty report")
	}
	return report, nil
}

// emptyYieldReport is the report body used when no source could be read.
// It is written without a model call since there is nothing to cite.
func emptyYieldReport(topic, title string, queries []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "No readable sources were found for %q. ", topic)
	b.WriteString("Every planned search returned no results, or every result failed to fetch.\n\n")
	if len(queries) > 0 {
		b.WriteString("## Queries attempted\n\n")
		for _, q := range queries {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	b.WriteString("Try a more specific topic, or scope the research to a known site with the site option.\n")
	return b.String()
}

// renderSources numbers each page for citation in the prompt.
func renderSources(pages []Page) string {
	var b strings.Builder
	for i, p := range pages {
		fmt.Fprintf(&b, "--- Source [%d] ---\nTitle: %s\nURL: %s\n\n%s\n\n", i+1, p.Title, p.URL, p.Text)
	}
	return b.String()
}
