// Package metrics provides the Prometheus metrics of the content pipeline.
//
// All metrics are registered with the default registry through promauto and
// exposed by the worker on /metrics. Callers use the Record* helpers rather
// than touching the collectors directly:
//
//	start := time.Now()
//	result := orchestrator.Run(ctx)
//	metrics.RecordRun(result.Success, time.Since(start))
package metrics
