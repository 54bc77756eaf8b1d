package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/knowledge"
	"github.com/insightlab/insighthub/internal/log"
)

const (
	// SearchKnowledgeName is the Genkit tool name for knowledge search.
	SearchKnowledgeName = "search_knowledge"

	defaultKnowledgeTopK = 5
	maxKnowledgeTopK     = 10
)

// KnowledgeSearchInput is the input schema for search_knowledge.
type KnowledgeSearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query string"`
	TopK  int    `json:"topK,omitempty" jsonschema_description:"Maximum results to return (1-10)"`
}

// KnowledgeMatch is one search hit returned to the model.
type KnowledgeMatch struct {
	Content    string  `json:"content"`
	Source     string  `json:"source,omitempty"`
	Similarity float32 `json:"similarity"`
}

// KnowledgeSearchOutput is the output schema for search_knowledge.
type KnowledgeSearchOutput struct {
	Matches []KnowledgeMatch `json:"matches"`
}

// knowledgeSearcher is the slice of knowledge.Store the toolset needs.
type knowledgeSearcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// KnowledgeToolset exposes the knowledge base to the chat agent.
type KnowledgeToolset struct {
	store  knowledgeSearcher
	logger log.Logger
}

// NewKnowledgeToolset creates the knowledge toolset.
func NewKnowledgeToolset(store knowledgeSearcher, logger log.Logger) (*KnowledgeToolset, error) {
	if store == nil {
		return nil, errors.New("knowledge store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &KnowledgeToolset{store: store, logger: logger}, nil
}

// Register defines the toolset's tools with Genkit.
func (kt *KnowledgeToolset) Register(g *genkit.Genkit) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, SearchKnowledgeName,
			"Search indexed documents using semantic similarity. "+
				"Returns matched passages with their source file and similarity score. "+
				"Use this to answer questions about content the user has ingested. "+
				"Default topK: 5. Maximum topK: 10.",
			kt.Search),
	}
}

// Search handles the search_knowledge tool call.
func (kt *KnowledgeToolset) Search(ctx *ai.ToolContext, input KnowledgeSearchInput) (KnowledgeSearchOutput, error) {
	if input.Query == "" {
		return KnowledgeSearchOutput{}, errors.New("query is required")
	}

	topK := input.TopK
	if topK <= 0 {
		topK = defaultKnowledgeTopK
	}
	if topK > maxKnowledgeTopK {
		topK = maxKnowledgeTopK
	}

	results, err := kt.store.Search(ctx, input.Query,
		knowledge.WithTopK(topK),
		knowledge.WithFilter("source_type", knowledge.SourceTypeFile),
	)
	if err != nil {
		return KnowledgeSearchOutput{}, fmt.Errorf("searching knowledge: %w", err)
	}

	matches := make([]KnowledgeMatch, len(results))
	for i, r := range results {
		matches[i] = KnowledgeMatch{
			Content:    r.Document.Content,
			Source:     r.Document.Metadata["file_path"],
			Similarity: r.Similarity,
		}
	}

	kt.logger.Debug("knowledge search tool called", "query", input.Query, "matches", len(matches))
	return KnowledgeSearchOutput{Matches: matches}, nil
}
