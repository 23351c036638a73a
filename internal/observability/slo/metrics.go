// Package slo tracks service level indicators of the daily run over a
// window of journaled runs.
package slo

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ai-slovo/internal/domain/entity"
)

// SLO targets.
const (
	// RunSuccessSLO is the target share of successful runs in the window.
	RunSuccessSLO = 0.95

	// RunDurationP95SLO is the target p95 run duration in seconds.
	RunDurationP95SLO = 300.0

	// FallbackRateSLO is the maximum share of runs that needed the local
	// prompt fallback.
	FallbackRateSLO = 0.2

	// Window is the number of recent runs the indicators are computed over.
	Window = 30
)

var (
	// SLORunSuccess is the share of successful runs (0-1) in the window.
	SLORunSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_run_success_ratio",
		Help: "Share of successful runs over the recent window, target: 0.95",
	})

	// SLORunDurationP95 is the p95 run duration in seconds.
	SLORunDurationP95 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_run_duration_p95_seconds",
		Help: "p95 run duration in seconds over the recent window, target: 300",
	})

	// SLOPromptFallbackRate is the share of runs that used the local prompt.
	SLOPromptFallbackRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_prompt_fallback_ratio",
		Help: "Share of runs authored by the local fallback, target: <= 0.2",
	})
)

// Snapshot holds indicators computed from a set of runs.
type Snapshot struct {
	Runs               int
	SuccessRatio       float64
	DurationP95Seconds float64
	FallbackRatio      float64
}

// Meets reports whether every indicator is within its target. An empty
// snapshot meets all targets.
func (s Snapshot) Meets() bool {
	if s.Runs == 0 {
		return true
	}
	return s.SuccessRatio >= RunSuccessSLO &&
		s.DurationP95Seconds <= RunDurationP95SLO &&
		s.FallbackRatio <= FallbackRateSLO
}

// Compute derives a Snapshot from runs. Runs without a finish time do not
// contribute to the duration percentile.
func Compute(runs []entity.RunRecord) Snapshot {
	s := Snapshot{Runs: len(runs)}
	if len(runs) == 0 {
		return s
	}

	var ok, fallback int
	durations := make([]float64, 0, len(runs))
	for _, r := range runs {
		if r.Success {
			ok++
		}
		if r.PromptFallback {
			fallback++
		}
		if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
			durations = append(durations, r.FinishedAt.Sub(r.StartedAt).Seconds())
		}
	}
	s.SuccessRatio = float64(ok) / float64(len(runs))
	s.FallbackRatio = float64(fallback) / float64(len(runs))
	s.DurationP95Seconds = percentile(durations, 0.95)
	return s
}

// percentile uses the nearest-rank method.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	rank := int(p*float64(len(values))+0.999999) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return values[rank]
}

// Update publishes s to the SLO gauges.
func Update(s Snapshot) {
	SLORunSuccess.Set(s.SuccessRatio)
	SLORunDurationP95.Set(s.DurationP95Seconds)
	SLOPromptFallbackRate.Set(s.FallbackRatio)
}
