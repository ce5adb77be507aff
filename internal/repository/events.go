package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uzsteam/xmlator/internal/model"
)

// EventRepository mirrors generation events into Postgres for the external
// reporting layer. The JSONL event log stays the source of truth; this mirror
// exists so reporting queries can run without touching the log file.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository constructs a repository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Insert stores one event. Callers treat failures as operational noise, in
// line with the append-only log: a mirror failure never fails a generation.
func (r *EventRepository) Insert(ctx context.Context, ev model.GenerationEvent) error {
	var errMsg sql.NullString
	if ev.Error != "" {
		errMsg = sql.NullString{String: ev.Error, Valid: true}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO generation_events (tijdstip, aanvraag_type, filename, output_path, size, success, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, ev.Timestamp, ev.MessageType, ev.Filename, ev.OutputPath, ev.Size, ev.Success, errMsg)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentByType returns per-type counts since the given moment, for reporting.
func (r *EventRepository) RecentByType(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT aanvraag_type, COUNT(*)
		FROM generation_events
		WHERE tijdstip >= $1
		GROUP BY aanvraag_type
	`, since)
	if err != nil {
		return nil, fmt.Errorf("select counts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		out[typ] = n
	}
	return out, rows.Err()
}
