package pipeline

import (
	"context"
	"fmt"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/observability/slo"
	"ai-slovo/internal/repository"
)

// JournalRecorder appends run results to a RunRepository. Error texts are
// sanitized before they are stored. After each append the run SLO gauges are
// refreshed from the recent window.
type JournalRecorder struct {
	Repo repository.RunRepository
}

// Record implements RunRecorder.
func (j JournalRecorder) Record(ctx context.Context, result *entity.RunResult) error {
	if result == nil {
		return nil
	}
	if err := j.Repo.Append(ctx, result.Record(logging.SanitizeError)); err != nil {
		return fmt.Errorf("append run %s: %w", result.RunID, err)
	}

	recent, err := j.Repo.Recent(ctx, slo.Window)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to refresh run SLOs",
			"error", logging.SanitizeError(err))
		return nil
	}
	slo.Update(slo.Compute(recent))
	return nil
}
