package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"
)

// Store manages documents and their embeddings with vector search.
//
// Store is safe for concurrent use by multiple goroutines; concurrent
// inserts share nothing beyond the database's id allocation.
type Store struct {
	queries  Querier
	embedder Embedder
	logger   *slog.Logger
}

// New creates a Store.
//
// Example (production):
//
//	store := knowledge.New(knowledge.NewPG(pool, logger), embedder, logger)
//
// Example (testing):
//
//	store := knowledge.New(mockQuerier, mockEmbedder, log.NewNop())
func New(queries Querier, embedder Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  queries,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds content and persists the document together with its embedding.
//
// The operation is atomic as a unit: an embedding failure aborts before
// anything is written, and the two row writes happen in one transaction.
// Metadata may be nil.
func (s *Store) Add(ctx context.Context, content string, metadata map[string]any) (*Document, error) {
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embedding document: %w", err)
	}

	var metadataJSON []byte
	if metadata != nil {
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshaling metadata: %w", err)
		}
	}

	row, err := s.queries.InsertDocument(ctx, InsertDocumentParams{
		Content:   content,
		Metadata:  metadataJSON,
		Embedding: pgvector.NewVector(vector),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Debug("added document", "id", row.ID, "content_length", len(content))
	return &Document{
		ID:        row.ID,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Get returns a stored document by id. Returns ErrNotFound for unknown ids.
func (s *Store) Get(ctx context.Context, id int64) (*Document, error) {
	row, err := s.queries.GetDocument(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return s.rowToDocument(row), nil
}

// Search embeds the query and returns stored documents ranked by descending
// similarity score. An empty store yields an empty slice, not an error.
// Repeated calls with identical inputs return identical orderings.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	// Bound the whole search so a stalled embedding call cannot block
	// the caller indefinitely.
	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vector, err := s.embedder.Embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		QueryEmbedding: pgvector.NewVector(vector),
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			ID:      row.ID,
			Content: row.Content,
			Score:   row.Score,
		})
	}

	s.logger.Debug("search completed", "query_length", len(query), "results", len(results))
	return results, nil
}

// Count returns the total number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	count, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return count, nil
}

func (s *Store) rowToDocument(row DocumentRow) *Document {
	var metadata map[string]any
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = nil
		}
	}
	return &Document{
		ID:        row.ID,
		Content:   row.Content,
		Metadata:  metadata,
		CreatedAt: row.CreatedAt,
	}
}
