package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend хранит коллекции в JSONB-колонке таблицы documents.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend создаёт backend и таблицу, если её нет.
func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool) (*PostgresBackend, error) {
	p := &PostgresBackend{pool: pool}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT PRIMARY KEY,
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PostgresBackend) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Get реализует Backend.
func (p *PostgresBackend) Get(ctx context.Context, collection string) ([]byte, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body FROM documents WHERE collection = $1`, collection).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return body, err
}

// Put реализует Backend.
func (p *PostgresBackend) Put(ctx context.Context, collection string, body []byte) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `
INSERT INTO documents (collection, body, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (collection) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
`, collection, string(body))
	return err
}
