package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/catalog"
	"github.com/insightlab/insighthub/internal/knowledge"
)

// Description is the catalog summary for the document RAG agent.
const Description = "Answers questions over your indexed documents with cited sources."

const systemPrompt = `You are a document research assistant. Answer the user's
question using ONLY the provided context passages. Cite passages by their
bracketed number, e.g. [1]. If the context does not contain the answer, say
so plainly instead of guessing.`

// SearchStore is the retrieval interface the agent depends on.
// knowledge.Store satisfies it.
type SearchStore interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Agent is the document RAG agent: retrieve topK passages, then generate a
// grounded answer with citations.
type Agent struct {
	g         *genkit.Genkit
	store     SearchStore
	modelName string
	topK      int
	logger    *slog.Logger
}

// NewAgent creates the document RAG agent.
func NewAgent(g *genkit.Genkit, store SearchStore, modelName string, topK int, logger *slog.Logger) (*Agent, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if store == nil {
		return nil, fmt.Errorf("search store is required")
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{g: g, store: store, modelName: modelName, topK: topK, logger: logger}, nil
}

// Name implements catalog.Agent.
func (a *Agent) Name() string { return catalog.NameDocumentRAG }

// Description implements catalog.Agent.
func (a *Agent) Description() string { return Description }

// Run implements catalog.Agent.
func (a *Agent) Run(ctx context.Context, req catalog.Request) (*catalog.Result, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("question is empty")
	}

	results, err := a.store.Search(ctx, req.Input,
		knowledge.WithTopK(a.topK),
		knowledge.WithFilter("source_type", knowledge.SourceTypeFile),
	)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	// An empty store gets an honest answer, not fabricated citations.
	if len(results) == 0 {
		a.logger.Debug("rag retrieval returned no passages", "question_length", len(req.Input))
		return &catalog.Result{
			Output: "No indexed documents matched this question. Ingest documents first with `insighthub ingest <path>`.",
		}, nil
	}

	contextBlock, sources := buildContext(results)

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt("Context passages:\n\n%s\n\nQuestion: %s", contextBlock, req.Input),
	)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	return &catalog.Result{
		Output:  resp.Text(),
		Sources: sources,
		Metadata: map[string]string{
			"passages": fmt.Sprintf("%d", len(results)),
		},
	}, nil
}

// buildContext renders numbered passages and collects their source labels.
func buildContext(results []knowledge.Result) (string, []string) {
	var b strings.Builder
	sources := make([]string, 0, len(results))

	for i, res := range results {
		label := res.Document.Metadata["file_path"]
		if label == "" {
			label = res.Document.ID
		}
		if chunk := res.Document.Metadata["chunk"]; chunk != "" {
			label = fmt.Sprintf("%s (part %s)", label, chunk)
		}
		sources = append(sources, label)

		fmt.Fprintf(&b, "[%d] %s (similarity %.2f)\n%s\n\n", i+1, label, res.Similarity, res.Document.Content)
	}

	return b.String(), sources
}
