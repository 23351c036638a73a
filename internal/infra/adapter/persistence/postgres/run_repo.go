// Package postgres implements the run journal on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/repository"
	"ai-slovo/internal/resilience/circuitbreaker"
)

// MaxRecentRuns caps Recent.
const MaxRecentRuns = 100

type RunRepo struct {
	db *circuitbreaker.JournalDB
}

// NewRunRepo wraps db with the journal circuit breaker.
func NewRunRepo(db *sql.DB) repository.RunRepository {
	return &RunRepo{db: circuitbreaker.NewJournalDB(db)}
}

const runColumns = `run_id, started_at, finished_at, success, stage, quote, quote_source, style,
prompt_backend, prompt_fallback, render_backend, instruction, truncated, outcomes, failure_reason`

func (repo *RunRepo) Append(ctx context.Context, rec entity.RunRecord) error {
	outcomes := rec.Outcomes
	if outcomes == nil {
		outcomes = []entity.OutcomeRecord{}
	}
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("Append: marshal outcomes: %w", err)
	}

	const query = `
INSERT INTO pipeline_runs (` + runColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = repo.db.ExecContext(ctx, query,
		rec.RunID, rec.StartedAt, rec.FinishedAt, rec.Success, rec.Stage,
		rec.Quote, rec.QuoteSource, rec.Style,
		rec.PromptBackend, rec.PromptFallback, rec.RenderBackend, rec.Instruction, rec.Truncated,
		outcomesJSON, rec.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (repo *RunRepo) Recent(ctx context.Context, limit int) ([]entity.RunRecord, error) {
	if limit <= 0 || limit > MaxRecentRuns {
		limit = MaxRecentRuns
	}
	query := `SELECT ` + runColumns + `
FROM pipeline_runs
ORDER BY started_at DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("Recent: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recent: %w", err)
	}
	return out, nil
}

func (repo *RunRepo) LastSuccess(ctx context.Context) (*entity.RunRecord, error) {
	query := `SELECT ` + runColumns + `
FROM pipeline_runs
WHERE success
ORDER BY started_at DESC
LIMIT 1`
	var rec *entity.RunRecord
	err := repo.db.QueryRowContext(ctx, query, func(row *sql.Row) error {
		var scanErr error
		rec, scanErr = scanRun(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LastSuccess: %w", err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.RunRecord, error) {
	var rec entity.RunRecord
	var outcomesJSON []byte
	if err := s.Scan(
		&rec.RunID, &rec.StartedAt, &rec.FinishedAt, &rec.Success, &rec.Stage,
		&rec.Quote, &rec.QuoteSource, &rec.Style,
		&rec.PromptBackend, &rec.PromptFallback, &rec.RenderBackend, &rec.Instruction, &rec.Truncated,
		&outcomesJSON, &rec.FailureReason,
	); err != nil {
		return nil, err
	}
	if len(outcomesJSON) > 0 {
		if err := json.Unmarshal(outcomesJSON, &rec.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal outcomes: %w", err)
		}
	}
	return &rec, nil
}
