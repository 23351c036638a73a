package circuitbreaker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sony/gobreaker"
)

func newMockJournal(t *testing.T, cfg Config) (*JournalDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewJournalDBWithConfig(db, cfg), mock
}

func TestNewJournalDB(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	j := NewJournalDB(db)
	if j.State() != gobreaker.StateClosed {
		t.Errorf("expected initial state Closed, got %s", j.State())
	}
	if j.cb.Name() != "journal" {
		t.Errorf("expected name journal, got %s", j.cb.Name())
	}
}

func TestJournalDB_ExecContext(t *testing.T) {
	j, mock := newMockJournal(t, JournalConfig())
	mock.ExpectExec("INSERT INTO pipeline_runs").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := j.ExecContext(context.Background(), "INSERT INTO pipeline_runs (run_id) VALUES ($1)", "r1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Errorf("expected 1 row affected, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestJournalDB_QueryContext(t *testing.T) {
	j, mock := newMockJournal(t, JournalConfig())
	mock.ExpectQuery("SELECT run_id FROM pipeline_runs").
		WillReturnRows(sqlmock.NewRows([]string{"run_id"}).AddRow("r1").AddRow("r2"))

	rows, err := j.QueryContext(context.Background(), "SELECT run_id FROM pipeline_runs")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 rows, got %d", len(ids))
	}
}

func TestJournalDB_QueryRowContext_NoRowsIsNotAFailure(t *testing.T) {
	cfg := JournalConfig()
	cfg.MinRequests = 1
	j, mock := newMockJournal(t, cfg)

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("WHERE success").WillReturnRows(sqlmock.NewRows([]string{"run_id"}))
	}

	for i := 0; i < 3; i++ {
		var id string
		err := j.QueryRowContext(context.Background(), "SELECT run_id FROM pipeline_runs WHERE success",
			func(row *sql.Row) error { return row.Scan(&id) })
		if !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("call %d: expected sql.ErrNoRows, got %v", i, err)
		}
	}
	if j.IsOpen() {
		t.Error("expected circuit to stay closed on empty results")
	}
}

func TestJournalDB_OpensAfterFailures(t *testing.T) {
	cfg := JournalConfig()
	cfg.Timeout = time.Hour
	j, mock := newMockJournal(t, cfg)
	dbErr := errors.New("connection refused")

	for i := 0; i < int(cfg.MinRequests); i++ {
		mock.ExpectExec("INSERT").WillReturnError(dbErr)
	}
	for i := 0; i < int(cfg.MinRequests); i++ {
		if _, err := j.ExecContext(context.Background(), "INSERT INTO pipeline_runs DEFAULT VALUES"); !errors.Is(err, dbErr) {
			t.Fatalf("call %d: expected db error, got %v", i, err)
		}
	}
	if !j.IsOpen() {
		t.Fatalf("expected circuit open after %d failures, state %s", cfg.MinRequests, j.State())
	}

	_, err := j.ExecContext(context.Background(), "INSERT INTO pipeline_runs DEFAULT VALUES")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("open circuit must not reach the database: %v", err)
	}
}

func TestJournalDB_HalfOpenRecovers(t *testing.T) {
	cfg := JournalConfig()
	cfg.MinRequests = 1
	cfg.Timeout = 20 * time.Millisecond
	j, mock := newMockJournal(t, cfg)

	mock.ExpectExec("INSERT").WillReturnError(errors.New("boom"))
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(0, 1))

	_, _ = j.ExecContext(context.Background(), "INSERT INTO pipeline_runs DEFAULT VALUES")
	if !j.IsOpen() {
		t.Fatalf("expected open circuit, got %s", j.State())
	}

	time.Sleep(40 * time.Millisecond)
	if _, err := j.ExecContext(context.Background(), "INSERT INTO pipeline_runs DEFAULT VALUES"); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if j.State() != gobreaker.StateClosed {
		t.Errorf("expected Closed after successful probe, got %s", j.State())
	}
}

func TestJournalConfig(t *testing.T) {
	cfg := JournalConfig()
	if cfg.MinRequests != 3 || cfg.MaxRequests != 1 {
		t.Errorf("unexpected sampling: min=%d max=%d", cfg.MinRequests, cfg.MaxRequests)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Errorf("expected 5m timeout, got %v", cfg.Timeout)
	}
	if !cfg.IsSuccessful(sql.ErrNoRows) {
		t.Error("sql.ErrNoRows must count as success")
	}
	if cfg.IsSuccessful(errors.New("x")) {
		t.Error("other errors must count as failures")
	}
}
