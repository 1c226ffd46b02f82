package stack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports a lookup by id that matched nothing.
var ErrNotFound = errors.New("not found")

// Store persists stacks, documents and chat history.
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

// EnsureSchema creates the stack tables and indexes if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating stack schema: %w", err)
	}
	return nil
}

const stackColumns = `id, name, description, nodes, edges, config, created_at, updated_at`

func scanStack(row pgx.Row) (Stack, error) {
	var st Stack
	err := row.Scan(&st.ID, &st.Name, &st.Description, &st.Nodes, &st.Edges, &st.Config, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// ListStacks returns all stacks, most recently updated first.
func (s *Store) ListStacks(ctx context.Context) ([]Stack, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+stackColumns+` FROM stacks ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing stacks: %w", err)
	}
	defer rows.Close()

	stacks := []Stack{}
	for rows.Next() {
		st, err := scanStack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stack: %w", err)
		}
		stacks = append(stacks, st)
	}
	return stacks, rows.Err()
}

// GetStack fetches one stack by id.
func (s *Store) GetStack(ctx context.Context, id string) (Stack, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+stackColumns+` FROM stacks WHERE id = $1`, id)
	st, err := scanStack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stack{}, fmt.Errorf("stack %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Stack{}, fmt.Errorf("getting stack: %w", err)
	}
	return st, nil
}

// CreateStack inserts a new stack and returns it as stored.
func (s *Store) CreateStack(ctx context.Context, params CreateStackParams) (Stack, error) {
	if params.Name == "" {
		params.Name = DefaultName
	}
	if params.Nodes == nil {
		params.Nodes = json.RawMessage(`[]`)
	}
	if params.Edges == nil {
		params.Edges = json.RawMessage(`[]`)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO stacks (id, name, description, nodes, edges, config)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+stackColumns,
		uuid.NewString(), params.Name, params.Description, params.Nodes, params.Edges, params.Config)

	st, err := scanStack(row)
	if err != nil {
		return Stack{}, fmt.Errorf("creating stack: %w", err)
	}

	s.logger.Info("stack created", "stack_id", st.ID, "name", st.Name)
	return st, nil
}

// UpdateStack applies a partial update and returns the stored stack.
// Nil params fields keep their current values.
func (s *Store) UpdateStack(ctx context.Context, id string, params UpdateStackParams) (Stack, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE stacks SET
		    name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    nodes = COALESCE($4, nodes),
		    edges = COALESCE($5, edges),
		    config = COALESCE($6, config),
		    updated_at = now()
		 WHERE id = $1
		 RETURNING `+stackColumns,
		id, params.Name, params.Description, params.Nodes, params.Edges, params.Config)

	st, err := scanStack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stack{}, fmt.Errorf("stack %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Stack{}, fmt.Errorf("updating stack: %w", err)
	}
	return st, nil
}

// DeleteStack removes a stack; its documents and chat history cascade.
func (s *Store) DeleteStack(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stacks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting stack: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stack %s: %w", id, ErrNotFound)
	}
	s.logger.Info("stack deleted", "stack_id", id)
	return nil
}

const documentColumns = `id, stack_id, filename, file_path, file_type, file_size, collection_name, chunk_count, created_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.StackID, &d.Filename, &d.FilePath, &d.FileType, &d.FileSize, &d.CollectionName, &d.ChunkCount, &d.CreatedAt)
	return d, err
}

// AddDocument records an uploaded document. The stack must exist.
func (s *Store) AddDocument(ctx context.Context, doc Document) (Document, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (id, stack_id, filename, file_path, file_type, file_size, collection_name, chunk_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+documentColumns,
		uuid.NewString(), doc.StackID, doc.Filename, doc.FilePath, doc.FileType, doc.FileSize, doc.CollectionName, doc.ChunkCount)

	stored, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("adding document: %w", err)
	}

	s.logger.Info("document added", "document_id", stored.ID, "stack_id", stored.StackID, "filename", stored.Filename)
	return stored, nil
}

// ListDocuments returns a stack's documents, oldest first.
func (s *Store) ListDocuments(ctx context.Context, stackID string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE stack_id = $1 ORDER BY created_at, id`, stackID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument fetches one document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("getting document: %w", err)
	}
	return d, nil
}

// DeleteDocument removes a document record.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// FirstCollection returns the vector collection of the stack's oldest
// document, or "" when the stack has no documents.
func (s *Store) FirstCollection(ctx context.Context, stackID string) (string, error) {
	var collection string
	err := s.pool.QueryRow(ctx,
		`SELECT collection_name FROM documents WHERE stack_id = $1 ORDER BY created_at, id LIMIT 1`,
		stackID).Scan(&collection)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up collection: %w", err)
	}
	return collection, nil
}

// SaveExchange appends a user/assistant message pair atomically.
func (s *Store) SaveExchange(ctx context.Context, stackID, query, answer string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertSQL = `INSERT INTO chat_history (id, stack_id, role, content) VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertSQL, uuid.NewString(), stackID, RoleUser, query); err != nil {
		return fmt.Errorf("saving user message: %w", err)
	}
	if _, err := tx.Exec(ctx, insertSQL, uuid.NewString(), stackID, RoleAssistant, answer); err != nil {
		return fmt.Errorf("saving assistant message: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing exchange: %w", err)
	}
	return nil
}

// History returns a stack's chat messages in chronological order.
func (s *Store) History(ctx context.Context, stackID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, stack_id, role, content, created_at FROM chat_history
		 WHERE stack_id = $1 ORDER BY created_at, id`, stackID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.StackID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ClearHistory deletes all chat messages of a stack.
func (s *Store) ClearHistory(ctx context.Context, stackID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chat_history WHERE stack_id = $1`, stackID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// CollectionName derives the vector collection name for a new document
// upload: the stack id with dashes flattened plus a random suffix, so two
// uploads to the same stack never collide.
func CollectionName(stackID string) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("stack_%s_%s", strings.ReplaceAll(stackID, "-", "_"), suffix)
}
