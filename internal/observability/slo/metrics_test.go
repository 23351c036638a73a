package slo

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ai-slovo/internal/domain/entity"
)

func run(success, fallback bool, d time.Duration) entity.RunRecord {
	start := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)
	return entity.RunRecord{
		Success:        success,
		PromptFallback: fallback,
		StartedAt:      start,
		FinishedAt:     start.Add(d),
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		runs        []entity.RunRecord
		wantSuccess float64
		wantP95     float64
		wantFB      float64
		wantMeets   bool
	}{
		{
			name:      "empty window",
			wantMeets: true,
		},
		{
			name: "all healthy",
			runs: []entity.RunRecord{
				run(true, false, 40*time.Second),
				run(true, false, 60*time.Second),
			},
			wantSuccess: 1,
			wantP95:     60,
			wantMeets:   true,
		},
		{
			name: "failures and fallbacks",
			runs: []entity.RunRecord{
				run(true, true, 30*time.Second),
				run(false, false, 10*time.Second),
				run(true, true, 400*time.Second),
				run(true, false, 20*time.Second),
			},
			wantSuccess: 0.75,
			wantP95:     400,
			wantFB:      0.5,
			wantMeets:   false,
		},
		{
			name:        "unfinished run has no duration",
			runs:        []entity.RunRecord{{Success: true}},
			wantSuccess: 1,
			wantMeets:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.runs)
			if s.Runs != len(tt.runs) {
				t.Errorf("Runs = %d, want %d", s.Runs, len(tt.runs))
			}
			if s.SuccessRatio != tt.wantSuccess {
				t.Errorf("SuccessRatio = %v, want %v", s.SuccessRatio, tt.wantSuccess)
			}
			if s.DurationP95Seconds != tt.wantP95 {
				t.Errorf("DurationP95Seconds = %v, want %v", s.DurationP95Seconds, tt.wantP95)
			}
			if s.FallbackRatio != tt.wantFB {
				t.Errorf("FallbackRatio = %v, want %v", s.FallbackRatio, tt.wantFB)
			}
			if s.Meets() != tt.wantMeets {
				t.Errorf("Meets() = %v, want %v", s.Meets(), tt.wantMeets)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	values := make([]float64, 0, 20)
	for i := 20; i >= 1; i-- {
		values = append(values, float64(i))
	}
	if got := percentile(values, 0.95); got != 19 {
		t.Errorf("percentile(0.95) = %v, want 19", got)
	}
	if got := percentile([]float64{7}, 0.95); got != 7 {
		t.Errorf("percentile single = %v, want 7", got)
	}
}

func TestUpdate(t *testing.T) {
	Update(Snapshot{Runs: 4, SuccessRatio: 0.75, DurationP95Seconds: 120, FallbackRatio: 0.25})

	if got := testutil.ToFloat64(SLORunSuccess); got != 0.75 {
		t.Errorf("SLORunSuccess = %v, want 0.75", got)
	}
	if got := testutil.ToFloat64(SLORunDurationP95); got != 120 {
		t.Errorf("SLORunDurationP95 = %v, want 120", got)
	}
	if got := testutil.ToFloat64(SLOPromptFallbackRate); got != 0.25 {
		t.Errorf("SLOPromptFallbackRate = %v, want 0.25", got)
	}
}
