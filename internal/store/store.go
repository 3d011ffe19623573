// Package store persists documents and their embedded fragments in
// PostgreSQL with pgvector. It backs retrieval (vector and keyword search)
// and source attribution.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docent0/docent/internal/chunk"
	"github.com/docent0/docent/internal/llm"
	"github.com/docent0/docent/internal/log"
	"github.com/docent0/docent/internal/retrieval"
)

// queryTimeout bounds individual database operations so a stuck query
// cannot hold a request open indefinitely.
const queryTimeout = 30 * time.Second

// Document is a stored source file.
type Document struct {
	ID        string
	Filename  string
	Title     string
	Category  string
	Fragments int
	CreatedAt time.Time
}

// Store is the PostgreSQL-backed fragment store.
type Store struct {
	pool     *pgxpool.Pool
	embedder *llm.Embedder
	logger   log.Logger
}

// New creates a store. The embedder is used to vectorize search queries and
// ingested fragments.
func New(pool *pgxpool.Pool, embedder *llm.Embedder, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("store: pool is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("store: embedder is nil")
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// Search finds the topK fragments nearest to the query by cosine
// similarity. When minSimilarity is positive, fragments below it are
// excluded; zero or negative disables the threshold.
func (s *Store) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]retrieval.Fragment, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, document_id, content, chunk_index, category, start_offset, end_offset
		FROM fragments
		WHERE $3::float8 <= 0 OR 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vec), topK, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	return scanFragments(rows)
}

// FindByContent returns fragments whose content contains the given
// substring, case-insensitively. Wildcard characters in the substring are
// escaped so they match literally.
func (s *Store) FindByContent(ctx context.Context, substring string, limit int) ([]retrieval.Fragment, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, document_id, content, chunk_index, category, start_offset, end_offset
		FROM fragments
		WHERE content ILIKE '%' || $1 || '%'
		ORDER BY document_id, chunk_index
		LIMIT $2`,
		escapeLike(substring), limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	return scanFragments(rows)
}

// DocumentTitles resolves document IDs to display titles. IDs the store no
// longer knows are absent from the result.
func (s *Store) DocumentTitles(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, COALESCE(NULLIF(title, ''), filename)
		FROM documents
		WHERE id = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("resolving document titles: %w", err)
	}
	defer rows.Close()

	titles := make(map[string]string, len(ids))
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scanning document title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

// UpsertDocument records a document, replacing any previous record with the
// same ID.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(queryCtx, `
		INSERT INTO documents (id, filename, title, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			title = EXCLUDED.title,
			category = EXCLUDED.category`,
		doc.ID, doc.Filename, doc.Title, doc.Category)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

// InsertFragments stores chunks with their embeddings under a document.
// Fragments that fail to insert are logged and skipped rather than aborting
// the batch; the returned count is how many were actually stored.
func (s *Store) InsertFragments(ctx context.Context, docID, category string, chunks []chunk.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	stored := 0
	for i, c := range chunks {
		queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
		_, err := s.pool.Exec(queryCtx, `
			INSERT INTO fragments (id, document_id, content, chunk_index, category, start_offset, end_offset, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.NewString(), docID, c.Text, c.Index, category, c.Start, c.End, pgvector.NewVector(vectors[i]))
		cancel()
		if err != nil {
			s.logger.Warn("skipping fragment that failed to store",
				"document_id", docID, "chunk_index", c.Index, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}

// DeleteDocument removes a document and, via cascade, its fragments.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(queryCtx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found", id)
	}
	return nil
}

// Documents lists stored documents with their fragment counts, newest
// first.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT d.id, d.filename, d.title, d.category, d.created_at, COUNT(f.id)
		FROM documents d
		LEFT JOIN fragments f ON f.document_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.Title, &d.Category, &d.CreatedAt, &d.Fragments); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

type fragmentRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanFragments(rows fragmentRows) ([]retrieval.Fragment, error) {
	var out []retrieval.Fragment
	for rows.Next() {
		var f retrieval.Fragment
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Text, &f.ChunkIndex, &f.Category, &f.StartOffset, &f.EndOffset); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// escapeLike makes LIKE wildcard characters match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
