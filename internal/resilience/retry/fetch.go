package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrExhausted matches every *ExhaustedError via errors.Is.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError is returned by Fetch when no attempt succeeded.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is reports true for ErrExhausted.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Fetch runs fn up to cfg.MaxAttempts times, sleeping cfg.InitialDelay
// between attempts (grown by cfg.Multiplier when it is above 1).
// Each failed attempt is logged. The value of the first successful attempt is
// returned; otherwise the error is an *ExhaustedError wrapping the last cause.
func Fetch[T any](ctx context.Context, cfg Config, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := cfg.InitialDelay

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++

		v, err := runAttempt(ctx, cfg.AttemptTimeout, fn)
		if err == nil {
			if attempt > 1 {
				slog.Info("fetch succeeded after retry",
					slog.String("op", op),
					slog.Int("attempt", attempt))
			}
			return v, nil
		}
		lastErr = err

		slog.Warn("fetch attempt failed",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Any("error", err))

		if ctx.Err() != nil {
			break
		}
		if !shouldRetry(cfg, err) {
			break
		}
		if attempt == maxAttempts {
			break
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, &ExhaustedError{Op: op, Attempts: attempt, Err: ctx.Err()}
			}
		}

		delay = cfg.nextDelay(delay)
	}

	slog.Error("fetch failed",
		slog.String("op", op),
		slog.Int("attempts", attempt),
		slog.Any("error", lastErr))
	return zero, &ExhaustedError{Op: op, Attempts: attempt, Err: lastErr}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

func shouldRetry(cfg Config, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if cfg.RetryIf != nil {
		return cfg.RetryIf(err)
	}
	return true
}
