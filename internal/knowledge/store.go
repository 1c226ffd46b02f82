package knowledge

import (
	"context"
	"crypto/md5" // #nosec G501 -- content-derived ids, not a security boundary
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds vector similarity queries so a slow scan cannot
// block a chat turn indefinitely.
const searchTimeout = 10 * time.Second

// Store persists passage embeddings in PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the passages table and supporting index if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating knowledge schema: %w", err)
	}
	return nil
}

// passageID derives a stable id from the passage content and its position,
// so re-indexing the same document is idempotent.
func passageID(content string, index int) string {
	sum := md5.Sum([]byte(content)) // #nosec G401 -- see import comment
	return fmt.Sprintf("%x_%d", sum[:8], index)
}

// AddPassages stores the given texts and their embeddings under a
// collection. texts, embeddings and metadatas must have equal length
// (metadatas may be nil, in which case only the chunk index is recorded).
// Returns the number of passages stored.
func (s *Store) AddPassages(ctx context.Context, collection string, texts []string, embeddings [][]float32, metadatas []map[string]string) (int, error) {
	if len(texts) != len(embeddings) {
		return 0, fmt.Errorf("texts/embeddings length mismatch: %d != %d", len(texts), len(embeddings))
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return 0, fmt.Errorf("texts/metadatas length mismatch: %d != %d", len(texts), len(metadatas))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertSQL = `INSERT INTO passages (collection, id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id) DO UPDATE SET content = EXCLUDED.content,
			embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`

	for i, text := range texts {
		meta := map[string]string{"chunk_index": fmt.Sprintf("%d", i)}
		if metadatas != nil {
			meta = metadatas[i]
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("marshaling metadata: %w", err)
		}

		vec := pgvector.NewVector(embeddings[i])
		if _, err := tx.Exec(ctx, insertSQL, collection, passageID(text, i), text, vec, metaJSON); err != nil {
			return 0, fmt.Errorf("inserting passage %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing passages: %w", err)
	}

	s.logger.Debug("stored passages", "collection", collection, "count", len(texts))
	return len(texts), nil
}

// QuerySimilar returns up to topK passages from the collection ranked by
// cosine distance to the query embedding. Ties are broken by insertion
// order, which is stable across identical queries.
func (s *Store) QuerySimilar(ctx context.Context, collection string, embedding []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	const querySQL = `SELECT content, metadata, embedding <=> $2 AS distance
		FROM passages
		WHERE collection = $1
		ORDER BY distance, created_at, id
		LIMIT $3`

	rows, err := s.pool.Query(ctx, querySQL, collection, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", collection, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m        Match
			metaJSON []byte
		)
		if err := rows.Scan(&m.Content, &metaJSON, &m.Distance); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}

	return matches, nil
}

// DeleteCollection removes every passage in the collection.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM passages WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	return nil
}

// Count returns the number of passages stored in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM passages WHERE collection = $1`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", collection, err)
	}
	return n, nil
}
