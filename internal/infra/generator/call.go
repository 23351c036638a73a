// Package generator implements the instruction authoring and image rendering
// backends used by the provider registry.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/metrics"
	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
)

// Capabilities reported in provider metrics.
const (
	capabilityPrompt = "prompt"
	capabilityRender = "render"
)

// caller runs backend calls through a circuit breaker with retry.
// Only transient failures are retried.
type caller struct {
	capability     string
	backend        string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func newCaller(capability, backend string, cbConfig circuitbreaker.Config, rc retry.Config) *caller {
	if rc.MaxAttempts == 0 {
		rc = retry.ProviderConfig()
	}
	if rc.RetryIf == nil {
		rc.RetryIf = func(err error) bool {
			return entity.KindOf(err) == entity.FailureTransient
		}
	}
	return &caller{
		capability:     capability,
		backend:        backend,
		circuitBreaker: circuitbreaker.New(cbConfig),
		retryConfig:    rc,
	}
}

// invoke runs fn and returns its value. Errors come back classified as
// *entity.BackendError, possibly wrapped in *retry.ExhaustedError.
func invoke[T any](ctx context.Context, c *caller, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	op := c.capability + "." + c.backend

	v, err := retry.Fetch(ctx, c.retryConfig, op, func(ctx context.Context) (T, error) {
		var zero T
		res, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				slog.Warn("backend circuit breaker open, request rejected",
					slog.String("backend", c.backend),
					slog.String("capability", c.capability),
					slog.String("state", c.circuitBreaker.State().String()))
				return zero, entity.NewBackendError(c.backend, entity.FailureOther,
					fmt.Errorf("%s unavailable: %w", c.backend, err))
			}
			return zero, classify(c.backend, err)
		}
		return res.(T), nil
	})

	metrics.RecordProviderCall(c.capability, c.backend, err == nil, time.Since(start))
	return v, err
}
