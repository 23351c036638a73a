package repository

import (
	"context"

	"ai-slovo/internal/domain/entity"
)

// RunRepository stores the run journal.
type RunRepository interface {
	// Append inserts a run. Appending the same run id twice is an error.
	Append(ctx context.Context, rec entity.RunRecord) error
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]entity.RunRecord, error)
	// LastSuccess returns the newest successful run, or nil if there is none.
	LastSuccess(ctx context.Context) (*entity.RunRecord, error)
}
