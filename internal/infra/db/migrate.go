package db

import (
	"context"
	"database/sql"
	"fmt"
)

// MigrateUp creates the run journal table and its indexes.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    run_id          TEXT PRIMARY KEY,
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ NOT NULL,
    success         BOOLEAN NOT NULL,
    stage           TEXT NOT NULL,
    quote           TEXT NOT NULL DEFAULT '',
    quote_source    TEXT NOT NULL DEFAULT '',
    style           TEXT NOT NULL DEFAULT '',
    prompt_backend  TEXT NOT NULL DEFAULT '',
    prompt_fallback BOOLEAN NOT NULL DEFAULT FALSE,
    render_backend  TEXT NOT NULL DEFAULT '',
    instruction     TEXT NOT NULL DEFAULT '',
    truncated       BOOLEAN NOT NULL DEFAULT FALSE,
    outcomes        JSONB NOT NULL DEFAULT '[]'::jsonb,
    failure_reason  TEXT NOT NULL DEFAULT ''
)`); err != nil {
		return fmt.Errorf("create pipeline_runs: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_success ON pipeline_runs(started_at DESC) WHERE success`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// MigrateDown drops the run journal.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS pipeline_runs`); err != nil {
		return fmt.Errorf("drop pipeline_runs: %w", err)
	}
	return nil
}
