// Package tracing provides OpenTelemetry span helpers for the pipeline stages.
//
// No exporter is configured by default; spans are recorded by whatever
// TracerProvider is installed globally (tests install an in-memory recorder).
package tracing
