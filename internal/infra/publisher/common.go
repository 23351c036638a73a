// Package publisher implements the distribution channels: Telegram, X
// (Twitter), Discord and Slack.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/usecase/publish"
)

// RateLimitError represents a 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a non-retryable 4xx response.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a retryable 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// isRetryableError reports whether err is a server or network failure.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false
	}
	return true
}

// statusError maps a non-2xx webhook or API response to a typed error.
func statusError(service string, resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    service + " rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error (%d): %s", service, resp.StatusCode, string(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error (%d): %s", service, resp.StatusCode, string(body)),
		}
	}
	return fmt.Errorf("%s: unexpected status code %d: %s", service, resp.StatusCode, string(body))
}

// extractRetryAfter reads retry_after (seconds) from a JSON body, then the
// Retry-After header. Defaults to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

// retryPolicy controls sendWithRetry.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	// maxRetryAfter caps how long a 429 response may make us wait.
	maxRetryAfter time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{maxAttempts: 2, baseDelay: 5 * time.Second, maxRetryAfter: time.Minute}
}

// sendWithRetry calls send until it succeeds, a non-retryable error occurs or
// attempts run out. 429 responses wait for their retry-after; server and
// network errors back off linearly.
func sendWithRetry(ctx context.Context, channel string, policy retryPolicy, send func(ctx context.Context) error) error {
	logger := logging.FromContext(ctx).With(slog.String("channel", channel))

	var lastErr error
	for attempt := 1; attempt <= policy.maxAttempts; attempt++ {
		err := send(ctx)
		if err == nil {
			logger.Info("publish request succeeded", slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if attempt == policy.maxAttempts {
			break
		}

		if rateLimitErr, ok := is429Error(err); ok {
			wait := rateLimitErr.RetryAfter
			publish.RecordRateLimitHit(channel)
			if policy.maxRetryAfter > 0 && wait > policy.maxRetryAfter {
				return err
			}
			logger.Warn("rate limit hit, backing off",
				slog.Duration("retry_after", wait),
				slog.Int("attempt", attempt))
			if err := sleepCtx(ctx, wait); err != nil {
				return fmt.Errorf("context canceled during rate limit backoff: %w", err)
			}
			publish.RecordRateLimitWait(channel, wait)
			continue
		}

		if !isRetryableError(err) {
			logger.Error("publish request failed with non-retryable error",
				slog.String("error", logging.SanitizeError(err)),
				slog.Int("attempt", attempt))
			return err
		}

		delay := policy.baseDelay * time.Duration(attempt)
		logger.Warn("publish request failed, retrying",
			slog.String("error", logging.SanitizeError(err)),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay))
		if err := sleepCtx(ctx, delay); err != nil {
			return fmt.Errorf("context canceled during retry backoff: %w", err)
		}
	}

	logger.Error("publish request failed after all retries",
		slog.String("error", logging.SanitizeError(lastErr)),
		slog.Int("max_attempts", policy.maxAttempts))
	return fmt.Errorf("%s publish failed after %d attempts: %w", channel, policy.maxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
