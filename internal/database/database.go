package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the generation_events table if needed. Having the
// migration in code keeps the deployment self-contained; a fresh database
// bootstraps itself on startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS generation_events (
	id BIGSERIAL PRIMARY KEY,
	tijdstip TIMESTAMPTZ NOT NULL,
	aanvraag_type TEXT NOT NULL,
	filename TEXT NOT NULL,
	output_path TEXT NOT NULL,
	size BIGINT NOT NULL,
	success BOOLEAN NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_generation_events_tijdstip ON generation_events(tijdstip);
CREATE INDEX IF NOT EXISTS idx_generation_events_type ON generation_events(aanvraag_type);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
