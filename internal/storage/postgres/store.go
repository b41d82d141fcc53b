// Package postgres provides an optional history sink: one row per capture,
// best-effort alongside the file store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lpmonitor/internal/model"
)

// Store provides Postgres persistence for snapshot history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertSnapshot records one capture. Re-running the same capture timestamp
// overwrites the previous row.
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	positions, err := json.Marshal(snap.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO lp_snapshot_history (
			captured_at, total_count, total_value, positions, created_at, updated_at
		) VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (captured_at)
		DO UPDATE SET
			total_count = EXCLUDED.total_count,
			total_value = EXCLUDED.total_value,
			positions = EXCLUDED.positions,
			updated_at = now()
	`,
		snap.Timestamp,
		snap.TotalCount,
		snap.TotalValue,
		positions,
	)
	return err
}

// LatestCapture returns the newest capture timestamp in the sink.
func (s *Store) LatestCapture(ctx context.Context) (string, bool, error) {
	var ts string
	row := s.pool.QueryRow(ctx, `SELECT captured_at FROM lp_snapshot_history ORDER BY captured_at DESC LIMIT 1`)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return ts, true, nil
}
