// Package observability groups the pipeline's logging, metrics, tracing and
// SLO helpers.
//
// Subpackages:
//   - logging: slog construction, run-scoped loggers and secret redaction
//   - metrics: Prometheus recorders for runs, providers and publishing
//   - tracing: OpenTelemetry span helpers for pipeline stages
//   - slo: run success and latency indicators over the journal window
//
// Example usage:
//
//	import (
//	    "ai-slovo/internal/observability/logging"
//	    "ai-slovo/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordPublish("telegram", true, 2*time.Second)
//	}
package observability
