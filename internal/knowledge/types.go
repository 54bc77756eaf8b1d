package knowledge

import "time"

// Source type constants for knowledge documents.
const (
	// SourceTypeConversation represents chat message history.
	SourceTypeConversation = "conversation"

	// SourceTypeFile represents indexed file content.
	SourceTypeFile = "file"

	// SourceTypeReport represents generated report content indexed for
	// later retrieval.
	SourceTypeReport = "report"
)

// Document represents a knowledge document.
type Document struct {
	ID       string            // Unique identifier
	Content  string            // Document text content
	Metadata map[string]string // Optional metadata (source, type, etc.)
	CreateAt time.Time         // Creation timestamp
}

// Result is a single search result with similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity (0-1)
}

// SearchOption configures search behavior using functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK   int
	filter map[string]string
}

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter adds a metadata filter. Multiple filters AND together.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 5}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
