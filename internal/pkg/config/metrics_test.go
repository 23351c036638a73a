package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigMetrics_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewConfigMetrics("test_component", reg)

	metrics.RecordLoadTimestamp()
	metrics.RecordFallback("timezone")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_component_config_load_timestamp"])
	assert.True(t, names["test_component_config_validation_errors_total"])
	assert.True(t, names["test_component_config_fallbacks_total"])
	assert.True(t, names["test_component_config_fallback_active"])
	assert.Equal(t, "test_component", metrics.componentName)
}

func TestTracker(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewConfigMetrics("tracked", reg)
	var logs bytes.Buffer
	tracker := NewTracker(metrics, slog.New(slog.NewTextHandler(&logs, nil)))

	got := Track(tracker, "max_retries", LoadResult[int]{Value: 3, Warning: "Invalid MAX_RETRIES", FallbackApplied: true})
	assert.Equal(t, 3, got)
	assert.Equal(t, "ok", Track(tracker, "source", LoadResult[string]{Value: "ok"}))
	tracker.Finish()

	assert.Equal(t, 1, tracker.Fallbacks())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("max_retries")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("max_retries")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), 0.0)
	assert.Contains(t, logs.String(), "Configuration fallback applied")
	assert.Contains(t, logs.String(), "field=max_retries")
}

func TestTracker_NoFallbacks(t *testing.T) {
	metrics := NewConfigMetrics("clean", prometheus.NewRegistry())
	tracker := NewTracker(metrics, nil)
	Track(tracker, "a", LoadResult[string]{Value: "x"})
	tracker.Finish()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbackActive))
}

func TestTracker_NilMetrics(t *testing.T) {
	tracker := NewTracker(nil, nil)
	assert.Equal(t, 5, Track(tracker, "a", LoadResult[int]{Value: 5, FallbackApplied: true}))
	tracker.Finish()
	assert.Equal(t, 1, tracker.Fallbacks())
}
