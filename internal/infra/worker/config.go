package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ai-slovo/internal/pkg/config"
)

// WorkerConfig controls scheduling and the worker's HTTP servers.
//
// Sources, in order: DefaultConfig, then environment variables. Invalid
// variables fall back to the default with a warning and a metric.
type WorkerConfig struct {
	// CronSchedule is a five-field cron expression. Default "0 6 * * *".
	CronSchedule string

	// Timezone is the IANA zone the schedule is evaluated in. Default
	// "Europe/Prague".
	Timezone string

	// RunTimeout bounds one pipeline run (1m to 1h). Default 10 minutes.
	RunTimeout time.Duration

	// HealthPort serves /health and /health/ready (1024-65535). Default 9091.
	HealthPort int

	// MetricsPort serves /metrics and /health/channels. Default 9090.
	MetricsPort int
}

// Run timeout bounds.
const (
	MinRunTimeout = time.Minute
	MaxRunTimeout = time.Hour
)

// DefaultConfig returns one run a day at 06:00 Prague time.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "0 6 * * *",
		Timezone:     "Europe/Prague",
		RunTimeout:   10 * time.Minute,
		HealthPort:   9091,
		MetricsPort:  9090,
	}
}

// Validate checks every field and reports all problems at once.
func (c *WorkerConfig) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.RunTimeout, MinRunTimeout, MaxRunTimeout); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := validatePort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := validatePort(c.MetricsPort); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health and metrics ports must differ, both are %d", c.HealthPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the schedule's time zone, or UTC if it does not load.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validatePort(p int) error {
	return config.ValidateIntRange(p, 1024, 65535)
}

// LoadConfigFromEnv loads the worker configuration with fail-open semantics.
// It never fails; metrics may be nil.
//
// Environment variables:
//   - CRON_SCHEDULE
//   - WORKER_TIMEZONE
//   - RUN_TIMEOUT, e.g. "15m"
//   - WORKER_HEALTH_PORT
//   - METRICS_PORT
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()

	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	t := config.NewTracker(cm, logger)

	cfg.CronSchedule = config.Track(t, "cron_schedule",
		config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule))
	cfg.Timezone = config.Track(t, "timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))
	cfg.RunTimeout = config.Track(t, "run_timeout",
		config.LoadEnvDuration("RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
			return config.ValidateDuration(d, MinRunTimeout, MaxRunTimeout)
		}))
	cfg.HealthPort = config.Track(t, "health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, validatePort))
	cfg.MetricsPort = config.Track(t, "metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, validatePort))

	t.Finish()
	return &cfg
}
