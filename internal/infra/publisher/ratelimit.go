package publisher

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"ai-slovo/internal/usecase/publish"
)

// RateLimiter is a token bucket limiter for one channel.
type RateLimiter struct {
	channel string
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained and
// burst immediate requests.
func NewRateLimiter(channel string, requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		channel: channel,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Allow blocks until a token is available or ctx is done. Waits are
// recorded in the publish rate limit metrics.
func (r *RateLimiter) Allow(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		publish.RecordRateLimitWait(r.channel, waited)
	}
	return nil
}
