package postgres_test

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/infra/adapter/persistence/postgres"
)

var runCols = []string{
	"run_id", "started_at", "finished_at", "success", "stage", "quote", "quote_source", "style",
	"prompt_backend", "prompt_fallback", "render_backend", "instruction", "truncated", "outcomes", "failure_reason",
}

func sampleRun() entity.RunRecord {
	started := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)
	return entity.RunRecord{
		RunID:         "6f1c",
		StartedAt:     started,
		FinishedAt:    started.Add(42 * time.Second),
		Success:       true,
		Stage:         "done",
		Quote:         "Pán je můj pastýř.",
		QuoteSource:   "bible21",
		Style:         "cubism",
		PromptBackend: "groq",
		RenderBackend: "together",
		Instruction:   "A shepherd in fractured planes",
		Outcomes: []entity.OutcomeRecord{
			{Channel: "telegram", Mandatory: true, Success: true, DurationMS: 800},
			{Channel: "twitter", Error: "X tweets API client error (403)", DurationMS: 300},
		},
	}
}

func runRow(rec entity.RunRecord) []driver.Value {
	outcomes, _ := json.Marshal(rec.Outcomes)
	return []driver.Value{
		rec.RunID, rec.StartedAt, rec.FinishedAt, rec.Success, rec.Stage, rec.Quote, rec.QuoteSource, rec.Style,
		rec.PromptBackend, rec.PromptFallback, rec.RenderBackend, rec.Instruction, rec.Truncated, outcomes, rec.FailureReason,
	}
}

/* ───────── Append ───────── */

func TestRunRepo_Append(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	rec := sampleRun()
	outcomes, _ := json.Marshal(rec.Outcomes)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pipeline_runs")).
		WithArgs(rec.RunID, rec.StartedAt, rec.FinishedAt, true, "done",
			rec.Quote, "bible21", "cubism", "groq", false, "together", rec.Instruction, false,
			outcomes, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewRunRepo(db)
	if err := repo.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRunRepo_Append_NilOutcomesStoredAsEmptyArray(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	rec := entity.RunRecord{RunID: "r", Stage: "fetch_quote", FailureReason: "no content"}
	mock.ExpectExec("INSERT INTO pipeline_runs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), false, "fetch_quote",
			"", "", "", "", false, "", "", false, []byte("[]"), "no content").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := postgres.NewRunRepo(db).Append(context.Background(), rec); err != nil {
		t.Fatalf("Append err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRunRepo_Append_Error(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO pipeline_runs").WillReturnError(errors.New("duplicate key"))

	err := postgres.NewRunRepo(db).Append(context.Background(), sampleRun())
	if err == nil || !regexp.MustCompile(`^Append: duplicate key`).MatchString(err.Error()) {
		t.Fatalf("unexpected err=%v", err)
	}
}

/* ───────── Recent ───────── */

func TestRunRepo_Recent(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := sampleRun()
	older := sampleRun()
	older.RunID = "5a0b"
	older.Success = false
	older.Outcomes = nil
	older.FailureReason = "render: length"

	rows := sqlmock.NewRows(runCols).AddRow(runRow(want)...).AddRow(runRow(older)...)
	mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_runs")).
		WithArgs(2).
		WillReturnRows(rows)

	got, err := postgres.NewRunRepo(db).Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent err=%v", err)
	}
	if diff := cmp.Diff([]entity.RunRecord{want, older}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRunRepo_Recent_ClampsLimit(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM pipeline_runs").
		WithArgs(postgres.MaxRecentRuns).
		WillReturnRows(sqlmock.NewRows(runCols))

	got, err := postgres.NewRunRepo(db).Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent err=%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no runs, got %d", len(got))
	}
}

/* ───────── LastSuccess ───────── */

func TestRunRepo_LastSuccess(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := sampleRun()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE success")).
		WillReturnRows(sqlmock.NewRows(runCols).AddRow(runRow(want)...))

	got, err := postgres.NewRunRepo(db).LastSuccess(context.Background())
	if err != nil {
		t.Fatalf("LastSuccess err=%v", err)
	}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRepo_LastSuccess_None(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("WHERE success").WillReturnRows(sqlmock.NewRows(runCols))

	got, err := postgres.NewRunRepo(db).LastSuccess(context.Background())
	if err != nil {
		t.Fatalf("LastSuccess err=%v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
