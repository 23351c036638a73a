package circuitbreaker

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// JournalDB guards the run journal database. The journal is written once per
// run, so the breaker trips on a handful of failures and stays open long
// enough to skip the next few runs' writes instead of stalling them.
type JournalDB struct {
	cb *CircuitBreaker
	db *sql.DB
}

// JournalConfig returns the breaker configuration for the run journal.
// sql.ErrNoRows is a valid answer and does not count as a failure.
func JournalConfig() Config {
	return Config{
		Name:             "journal",
		MaxRequests:      1,
		Interval:         10 * time.Minute,
		Timeout:          5 * time.Minute,
		FailureThreshold: 1.0,
		MinRequests:      3,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, sql.ErrNoRows)
		},
	}
}

// NewJournalDB wraps db with JournalConfig.
func NewJournalDB(db *sql.DB) *JournalDB {
	return NewJournalDBWithConfig(db, JournalConfig())
}

// NewJournalDBWithConfig wraps db with a custom configuration.
func NewJournalDBWithConfig(db *sql.DB, cfg Config) *JournalDB {
	return &JournalDB{cb: New(cfg), db: db}
}

// ExecContext runs a statement. An open circuit returns gobreaker.ErrOpenState
// without touching the database.
func (j *JournalDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := j.cb.Execute(func() (interface{}, error) {
		return j.db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(sql.Result), nil
}

// QueryContext runs a query returning rows.
func (j *JournalDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	result, err := j.cb.Execute(func() (interface{}, error) {
		return j.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*sql.Rows), nil
}

// QueryRowContext runs a single-row query and scan inside the breaker, so
// scan errors count against it. A missing row is returned as sql.ErrNoRows.
func (j *JournalDB) QueryRowContext(ctx context.Context, query string, scan func(*sql.Row) error, args ...any) error {
	_, err := j.cb.Execute(func() (interface{}, error) {
		return nil, scan(j.db.QueryRowContext(ctx, query, args...))
	})
	return err
}

// State returns the breaker state.
func (j *JournalDB) State() gobreaker.State { return j.cb.State() }

// IsOpen reports whether journal calls are currently short-circuited.
func (j *JournalDB) IsOpen() bool { return j.cb.IsOpen() }
