package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// SQL statements kept as constants for clarity and reuse.
const (
	insertDocSQL = `
INSERT INTO activity_documents (user_id, doc_id, data)
VALUES ($1, gen_random_uuid()::text, $2::jsonb)
RETURNING doc_id`

	selectDocSQL = `
SELECT doc_id, data, created_at FROM activity_documents
WHERE user_id = $1 AND doc_id = $2`

	mergeDocSQL = `
UPDATE activity_documents
SET data = data || $3::jsonb, updated_at = now()
WHERE user_id = $1 AND doc_id = $2`

	deleteDocSQL = `DELETE FROM activity_documents WHERE user_id = $1 AND doc_id = $2`

	queryDocsSQL = `
SELECT doc_id, data, created_at FROM activity_documents
WHERE user_id = $1 AND data->>$2 = $3
ORDER BY created_at, doc_id`

	allDocsSQL = `
SELECT doc_id, data, created_at FROM activity_documents
WHERE user_id = $1
ORDER BY created_at, doc_id`

	selectGoalsSQL = `SELECT data FROM user_goals WHERE user_id = $1`

	upsertGoalsSQL = `
INSERT INTO user_goals (user_id, data) VALUES ($1, $2::jsonb)
ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = now()`
)

// queryableFields guards QueryByField against arbitrary JSON paths.
var queryableFields = map[string]bool{
	FieldID:    true,
	FieldDate:  true,
	FieldTitle: true,
}

// Postgres stores activity documents as JSONB rows keyed by (user, doc id).
type Postgres struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// OpenPostgres connects to dsn, retrying the initial ping with exponential
// backoff, and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, log zerolog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	attempt := 0
	ping := func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("postgres ping failed")
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(exp, 4), ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	p := NewPostgres(pool, log)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool, log zerolog.Logger) *Postgres {
	return &Postgres{pool: pool, log: log}
}

// EnsureSchema creates the document tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating remote schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Create(ctx context.Context, userID string, rec model.ActivityRecord) (string, error) {
	body, err := documentBody(rec)
	if err != nil {
		return "", err
	}

	var id string
	if err := p.pool.QueryRow(ctx, insertDocSQL, userID, body).Scan(&id); err != nil {
		return "", fmt.Errorf("creating document: %w", err)
	}
	return id, nil
}

func (p *Postgres) Get(ctx context.Context, userID, docID string) (*Document, error) {
	doc, err := scanDocument(p.pool.QueryRow(ctx, selectDocSQL, userID, docID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", docID, err)
	}
	return &doc, nil
}

func (p *Postgres) Update(ctx context.Context, userID, docID string, rec model.ActivityRecord) error {
	body, err := documentBody(rec)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, mergeDocSQL, userID, docID, body)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, userID, docID string) error {
	tag, err := p.pool.Exec(ctx, deleteDocSQL, userID, docID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) QueryByField(ctx context.Context, userID, field, value string) ([]Document, error) {
	if !queryableFields[field] {
		return nil, fmt.Errorf("field %q is not queryable", field)
	}
	return p.queryDocs(ctx, queryDocsSQL, userID, field, value)
}

func (p *Postgres) All(ctx context.Context, userID string) ([]Document, error) {
	return p.queryDocs(ctx, allDocsSQL, userID)
}

func (p *Postgres) queryDocs(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
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

func (p *Postgres) LoadGoals(ctx context.Context, userID string) (json.RawMessage, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, selectGoalsSQL, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading goals: %w", err)
	}
	return json.RawMessage(data), nil
}

func (p *Postgres) SaveGoals(ctx context.Context, userID string, goals json.RawMessage) error {
	if _, err := p.pool.Exec(ctx, upsertGoalsSQL, userID, string(goals)); err != nil {
		return fmt.Errorf("saving goals: %w", err)
	}
	return nil
}

// documentBody encodes rec for storage. RemoteID is the row key and is not
// duplicated inside the document.
func documentBody(rec model.ActivityRecord) (string, error) {
	rec.RemoteID = ""
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	return string(data), nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		doc  Document
		data []byte
	)
	if err := row.Scan(&doc.ID, &data, &doc.CreatedAt); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(data, &doc.Record); err != nil {
		return Document{}, fmt.Errorf("decoding document %s: %w", doc.ID, err)
	}
	doc.Record.RemoteID = doc.ID
	return doc, nil
}
