package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the persistence operations used by Store.
// The interface is defined by the consumer, not the provider, so Store can
// depend on an abstraction: PG in production, mocks in tests.
type Querier interface {
	// InsertDocument persists a document row and its embedding row as a
	// single atomic unit, returning the store-assigned row.
	InsertDocument(ctx context.Context, arg InsertDocumentParams) (DocumentRow, error)

	// GetDocument returns a document by id. Missing ids map to ErrNotFound.
	GetDocument(ctx context.Context, id int64) (DocumentRow, error)

	// SearchDocuments ranks stored documents by cosine distance to the
	// query embedding.
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error)

	// CountDocuments counts all stored documents.
	CountDocuments(ctx context.Context) (int64, error)
}

// InsertDocumentParams carries the inputs of InsertDocument. Metadata is
// pre-marshaled JSON; nil stores SQL NULL.
type InsertDocumentParams struct {
	Content   string
	Metadata  []byte
	Embedding pgvector.Vector
}

// DocumentRow is a document as read from the database.
type DocumentRow struct {
	ID        int64
	Content   string
	Metadata  []byte
	CreatedAt time.Time
}

// SearchDocumentsParams carries the inputs of SearchDocuments.
type SearchDocumentsParams struct {
	QueryEmbedding pgvector.Vector
	ResultLimit    int32
}

// SearchDocumentsRow is a single ranked search hit.
type SearchDocumentsRow struct {
	ID      int64
	Content string
	Score   float64
}

// PG implements Querier on top of a pgxpool.Pool.
// Safe for concurrent use; each operation checks out its own connection.
type PG struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPG creates the production Querier. logger may be nil.
func NewPG(pool *pgxpool.Pool, logger *slog.Logger) *PG {
	if logger == nil {
		logger = slog.Default()
	}
	return &PG{pool: pool, logger: logger}
}

const insertDocumentSQL = `
INSERT INTO documents (content, metadata)
VALUES ($1, $2)
RETURNING id, created_at`

const insertEmbeddingSQL = `
INSERT INTO embeddings (document_id, vector)
VALUES ($1, $2)`

// InsertDocument writes the document row and its embedding row inside one
// transaction. Either both become visible or neither does: a document must
// never exist without its embedding.
func (q *PG) InsertDocument(ctx context.Context, arg InsertDocumentParams) (DocumentRow, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return DocumentRow{}, fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback is a no-op after a successful commit.
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			q.logger.Debug("insert transaction rollback", "error", err)
		}
	}()

	row := DocumentRow{Content: arg.Content, Metadata: arg.Metadata}
	if err := tx.QueryRow(ctx, insertDocumentSQL, arg.Content, arg.Metadata).
		Scan(&row.ID, &row.CreatedAt); err != nil {
		return DocumentRow{}, fmt.Errorf("inserting document: %w", err)
	}

	if _, err := tx.Exec(ctx, insertEmbeddingSQL, row.ID, arg.Embedding); err != nil {
		return DocumentRow{}, fmt.Errorf("inserting embedding for document %d: %w", row.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DocumentRow{}, fmt.Errorf("committing insert: %w", err)
	}

	return row, nil
}

const getDocumentSQL = `
SELECT id, content, metadata, created_at
FROM documents
WHERE id = $1`

// GetDocument returns a document by id.
func (q *PG) GetDocument(ctx context.Context, id int64) (DocumentRow, error) {
	var row DocumentRow
	err := q.pool.QueryRow(ctx, getDocumentSQL, id).
		Scan(&row.ID, &row.Content, &row.Metadata, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentRow{}, ErrNotFound
	}
	if err != nil {
		return DocumentRow{}, fmt.Errorf("getting document %d: %w", id, err)
	}
	return row, nil
}

// searchDocumentsSQL ranks by ascending cosine distance; the secondary sort
// on d.id makes equal-distance orderings deterministic.
const searchDocumentsSQL = `
SELECT d.id, d.content, 1 - (e.vector <=> $1) AS score
FROM embeddings e
JOIN documents d ON d.id = e.document_id
ORDER BY e.vector <=> $1, d.id
LIMIT $2`

// SearchDocuments returns up to ResultLimit documents ranked by similarity
// to the query embedding. An empty table yields an empty slice.
func (q *PG) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	rows, err := q.pool.Query(ctx, searchDocumentsSQL, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	results := make([]SearchDocumentsRow, 0, arg.ResultLimit)
	for rows.Next() {
		var r SearchDocumentsRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Score); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}

	return results, nil
}

const countDocumentsSQL = `SELECT count(*) FROM documents`

// CountDocuments counts all stored documents.
func (q *PG) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, countDocumentsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}
