package publish

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// circuitBreakerOpenTotal counts channel circuit breaker trips
	circuitBreakerOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_circuit_breaker_open_total",
			Help: "Total number of times a channel circuit breaker opened",
		},
		[]string{"channel"},
	)

	// rateLimitHitsTotal counts channel rate limit responses
	rateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_rate_limit_hits_total",
			Help: "Total number of rate limit responses from channels",
		},
		[]string{"channel"},
	)

	// rateLimitWait measures time spent waiting on rate limits
	rateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publish_rate_limit_wait_seconds",
			Help:    "Time spent waiting for channel rate limits",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"channel"},
	)

	// channelsEnabled tracks the number of enabled channels
	channelsEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "publish_channels_enabled",
			Help: "Number of enabled distribution channels",
		},
	)
)

// RecordCircuitBreakerOpen records a channel circuit breaker trip.
func RecordCircuitBreakerOpen(channel string) {
	circuitBreakerOpenTotal.WithLabelValues(channel).Inc()
}

// RecordRateLimitHit records a 429 response from a channel.
func RecordRateLimitHit(channel string) {
	rateLimitHitsTotal.WithLabelValues(channel).Inc()
}

// RecordRateLimitWait records time spent waiting before a retry.
func RecordRateLimitWait(channel string, d time.Duration) {
	rateLimitWait.WithLabelValues(channel).Observe(d.Seconds())
}

// SetChannelsEnabled sets the enabled channel gauge.
func SetChannelsEnabled(n int) {
	channelsEnabled.Set(float64(n))
}
