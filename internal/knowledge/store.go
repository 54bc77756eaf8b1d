// Package knowledge manages the vector document store backing the document
// RAG agent. Documents are embedded with the configured Genkit embedder and
// stored in PostgreSQL with pgvector; search is cosine similarity over an
// HNSW index.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// VectorDimension is the embedding width stored in the documents table.
// gemini-embedding-001 supports Matryoshka truncation; 768 keeps index size
// reasonable without a measurable retrieval quality drop.
const VectorDimension int32 = 768

// EmbedTimeout bounds a single embedding call.
const EmbedTimeout = 15 * time.Second

// searchTimeout bounds a vector search query.
const searchTimeout = 10 * time.Second

// Store manages knowledge documents with vector search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store.
func New(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// embed generates a vector embedding for the given text, truncated to
// VectorDimension.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embed request: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Add embeds and upserts a document. Re-adding the same ID updates its
// content, embedding and metadata, so ingestion is idempotent.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.Content == "" {
		return fmt.Errorf("document %q has empty content", doc.ID)
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()
	vec, err := s.embed(embedCtx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	createdAt := doc.CreateAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, content, embedding, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET content = EXCLUDED.content,
		     embedding = EXCLUDED.embedding,
		     metadata = EXCLUDED.metadata`,
		doc.ID, doc.Content, vec, metadataJSON, createdAt)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search returns the documents most similar to the query, ordered by
// cosine similarity.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()
	vec, err := s.embed(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	searchCtx, cancelSearch := context.WithTimeout(ctx, searchTimeout)
	defer cancelSearch()

	var rows pgx.Rows
	if len(cfg.filter) > 0 {
		filterJSON, err := json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("marshaling filter: %w", err)
		}
		rows, err = s.pool.Query(searchCtx,
			`SELECT id, content, metadata, created_at, 1 - (embedding <=> $1) AS similarity
			 FROM documents
			 WHERE metadata @> $2
			 ORDER BY embedding <=> $1
			 LIMIT $3`,
			vec, filterJSON, cfg.topK)
		if err != nil {
			return nil, fmt.Errorf("searching documents: %w", err)
		}
	} else {
		rows, err = s.pool.Query(searchCtx,
			`SELECT id, content, metadata, created_at, 1 - (embedding <=> $1) AS similarity
			 FROM documents
			 ORDER BY embedding <=> $1
			 LIMIT $2`,
			vec, cfg.topK)
		if err != nil {
			return nil, fmt.Errorf("searching documents: %w", err)
		}
	}

	return scanResults(rows)
}

// Delete removes a document by ID. Deleting an unknown ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting document %q: %w", id, err)
	}
	return nil
}

// ListBySourceType lists documents of a given source type, newest first.
func (s *Store) ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, created_at
		 FROM documents
		 WHERE metadata->>'source_type' = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count returns the total number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func scanResults(rows pgx.Rows) ([]Result, error) {
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			doc          Document
			metadataJSON []byte
			similarity   float32
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &doc.CreateAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for %q: %w", doc.ID, err)
			}
		}
		results = append(results, Result{Document: doc, Similarity: similarity})
	}
	return results, rows.Err()
}

func scanDocument(rows pgx.Rows) (Document, error) {
	var (
		doc          Document
		metadataJSON []byte
	)
	if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &doc.CreateAt); err != nil {
		return Document{}, fmt.Errorf("scanning document row: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("unmarshaling metadata for %q: %w", doc.ID, err)
		}
	}
	return doc, nil
}
