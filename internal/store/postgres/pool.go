package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, dsn string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables this service owns if they do not exist.
// Idempotent; safe to run at startup from every binary.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS document_states (
			document_id  TEXT        NOT NULL,
			chunk_id     TEXT        NOT NULL DEFAULT 'metadata',
			status       TEXT        NOT NULL,
			stage        TEXT        NOT NULL,
			progress     INT         NOT NULL,
			error        TEXT,
			start_time   TIMESTAMPTZ,
			last_updated TIMESTAMPTZ NOT NULL,
			expires_at   TIMESTAMPTZ NOT NULL,
			version      BIGINT      NOT NULL DEFAULT 1,
			PRIMARY KEY (document_id, chunk_id)
		);
		CREATE TABLE IF NOT EXISTS subscribers (
			connection_id TEXT        PRIMARY KEY,
			connected_at  TIMESTAMPTZ NOT NULL,
			expires_at    TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
