// Package pgstore keeps the catalog document as a JSONB row in Postgres.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starford/folio/internal/apperr"
)

// DefaultKey is the row key the catalog lives under when none is configured.
const DefaultKey = "portfolio"

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the documents table if needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS documents (
	key TEXT PRIMARY KEY,
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	return nil
}

// Store is a remote document backend on Postgres.
type Store struct {
	pool *pgxpool.Pool
	key  string
}

// New wraps pool. The schema must exist; see EnsureSchema.
func New(pool *pgxpool.Pool, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{pool: pool, key: key}
}

// Name identifies the backend in logs and errors.
func (s *Store) Name() string { return "postgres" }

// Get returns the stored document. A missing row matches apperr.ErrNotFound.
func (s *Store) Get(ctx context.Context) ([]byte, error) {
	var body string
	err := s.pool.QueryRow(ctx, `SELECT body::text FROM documents WHERE key=$1`, s.key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pgstore: get %s: %w", s.key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get %s: %w", s.key, err)
	}
	return []byte(body), nil
}

// Put upserts the document row.
func (s *Store) Put(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (key, body, updated_at) VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, s.key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("pgstore: put %s: %w", s.key, err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pgstore: ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
