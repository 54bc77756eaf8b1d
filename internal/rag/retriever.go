package rag

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/knowledge"
)

// Retriever bridges knowledge.Store to the Genkit ai.Retriever interface.
type Retriever struct {
	store *knowledge.Store
}

// NewRetriever creates a Retriever over the given store.
func NewRetriever(store *knowledge.Store) *Retriever {
	return &Retriever{store: store}
}

// DefineDocuments registers a Genkit retriever over indexed file documents.
func (r *Retriever) DefineDocuments(g *genkit.Genkit, name string) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			results, err := r.store.Search(ctx, extractQueryText(req),
				knowledge.WithTopK(extractTopK(req, 5)),
				knowledge.WithFilter("source_type", knowledge.SourceTypeFile),
			)
			if err != nil {
				return nil, err
			}
			return &ai.RetrieverResponse{Documents: toGenkitDocuments(results)}, nil
		},
	)
}

// extractQueryText extracts text from RetrieverRequest.Query.
func extractQueryText(req *ai.RetrieverRequest) string {
	if req.Query != nil && len(req.Query.Content) > 0 {
		return req.Query.Content[0].Text
	}
	return ""
}

// extractTopK reads "k" from request options, clamped to [1, 20].
func extractTopK(req *ai.RetrieverRequest, defaultK int) int {
	opts, ok := req.Options.(map[string]any)
	if !ok {
		return defaultK
	}
	raw, exists := opts["k"]
	if !exists {
		return defaultK
	}

	var k int
	switch v := raw.(type) {
	case int:
		k = v
	case int32:
		k = int(v)
	case float64:
		k = int(v)
	default:
		return defaultK
	}

	if k < 1 || k > 20 {
		return defaultK
	}
	return k
}

// toGenkitDocuments converts search results to Genkit documents, carrying
// metadata and similarity through for citation rendering.
func toGenkitDocuments(results []knowledge.Result) []*ai.Document {
	docs := make([]*ai.Document, 0, len(results))
	for _, res := range results {
		metadata := map[string]any{
			"id":         res.Document.ID,
			"similarity": res.Similarity,
		}
		for k, v := range res.Document.Metadata {
			metadata[k] = v
		}
		docs = append(docs, ai.DocumentFromText(res.Document.Content, metadata))
	}
	return docs
}
