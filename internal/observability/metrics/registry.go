package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics track end-to-end runs
var (
	// PipelineRunsTotal counts runs by status (success, failure)
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	// PipelineRunDuration measures run duration in seconds
	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// SourceFallbacksTotal counts runs where the fallback content source was used
	SourceFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_source_fallbacks_total",
			Help: "Total number of times the fallback content source was consulted",
		},
	)

	// StyleSelectedTotal counts selected styles
	StyleSelectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_style_selected_total",
			Help: "Total number of selections per style",
		},
		[]string{"style"},
	)
)

// Provider metrics track authoring and rendering backends
var (
	// InstructionLength records the length of authored instructions in characters
	InstructionLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provider_instruction_length_characters",
			Help:    "Length of rendering instructions in characters",
			Buckets: []float64{100, 250, 500, 750, 1000, 1250, 1500, 2000, 3000, 5000},
		},
	)

	// InstructionTruncatedTotal counts instructions shortened to fit the budget
	InstructionTruncatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_instruction_truncated_total",
			Help: "Total number of instructions shortened to fit the character budget",
		},
		[]string{"backend"},
	)

	// ProviderCallsTotal counts backend calls by capability, backend and status
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Total number of backend calls",
		},
		[]string{"capability", "backend", "status"},
	)

	// ProviderCallDuration measures backend call duration in seconds
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Backend call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"capability", "backend"},
	)

	// RenderFallbacksTotal counts cross-backend render fallbacks
	RenderFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_render_fallbacks_total",
			Help: "Total number of render retries on the fallback backend",
		},
		[]string{"from", "to"},
	)
)

// Publish metrics track channel deliveries
var (
	// PublishTotal counts deliveries by channel and status (success, failure, skipped)
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_total",
			Help: "Total number of channel deliveries",
		},
		[]string{"channel", "status"},
	)

	// PublishDuration measures delivery duration in seconds
	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publish_duration_seconds",
			Help:    "Channel delivery duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

// Journal metrics track run journal writes
var (
	// JournalWritesTotal counts journal writes by status
	JournalWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_writes_total",
			Help: "Total number of run journal writes",
		},
		[]string{"status"},
	)
)
