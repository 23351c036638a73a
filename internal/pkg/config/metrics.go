package config

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics tracks configuration loading for one component:
//   - {component}_config_load_timestamp
//   - {component}_config_validation_errors_total{field}
//   - {component}_config_fallbacks_total{field}
//   - {component}_config_fallback_active
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge

	componentName string
}

// NewConfigMetrics registers the metrics for componentName with reg.
// A nil reg uses the default registerer.
func NewConfigMetrics(componentName string, reg prometheus.Registerer) *ConfigMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &ConfigMetrics{
		LoadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: componentName + "_config_load_timestamp",
			Help: "Unix timestamp of last " + componentName + " configuration load",
		}),
		ValidationErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: componentName + "_config_validation_errors_total",
			Help: "Total number of " + componentName + " configuration validation errors",
		}, []string{"field"}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: componentName + "_config_fallbacks_total",
			Help: "Total number of " + componentName + " configuration fallback operations",
		}, []string{"field"}),
		FallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: componentName + "_config_fallback_active",
			Help: "1 if any " + componentName + " configuration fallback is active, 0 otherwise",
		}),
		componentName: componentName,
	}
}

// RecordLoadTimestamp sets the load timestamp to now.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordFallback counts a rejected value for field.
func (m *ConfigMetrics) RecordFallback(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive sets the fallback gauge.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}

// Tracker collects the fallbacks of one configuration load. Metrics may be
// nil, in which case only warnings are logged.
type Tracker struct {
	metrics   *ConfigMetrics
	logger    *slog.Logger
	fallbacks int
}

// NewTracker creates a Tracker. A nil logger uses slog.Default.
func NewTracker(metrics *ConfigMetrics, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{metrics: metrics, logger: logger}
}

// Track returns r.Value, logging and counting a fallback for field.
func Track[T any](t *Tracker, field string, r LoadResult[T]) T {
	if r.FallbackApplied {
		t.fallbacks++
		if t.metrics != nil {
			t.metrics.RecordFallback(field)
		}
		t.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", r.Warning))
	}
	return r.Value
}

// Fallbacks returns the number of fallbacks tracked so far.
func (t *Tracker) Fallbacks() int { return t.fallbacks }

// Finish updates the fallback gauge and load timestamp.
func (t *Tracker) Finish() {
	if t.metrics == nil {
		return
	}
	t.metrics.SetFallbackActive(t.fallbacks > 0)
	t.metrics.RecordLoadTimestamp()
}
