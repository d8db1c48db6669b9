package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS progress_documents (
    key        TEXT        PRIMARY KEY,
    document   JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresBackend stores documents in a JSONB column.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

var _ Backend = (*PostgresBackend)(nil)

// NewPostgresBackend connects to dsn and ensures the schema exists.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("progress: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("progress: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("progress: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("progress: migrate: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx, "SELECT document::text FROM progress_documents WHERE key = $1", key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("progress: load: %w", err)
	}
	return doc, nil
}

// Save upserts the document. data must be valid JSON.
func (p *PostgresBackend) Save(ctx context.Context, key string, data []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO progress_documents (key, document, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("progress: save: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM progress_documents WHERE key = $1", key); err != nil {
		return fmt.Errorf("progress: delete: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
