// Package logging provides structured logging utilities with context propagation.
//
// Loggers emit JSON via log/slog. Each pipeline run attaches its run ID with
// WithRunID, and errors that may carry credentials are passed through
// SanitizeError before they are logged at the process boundary.
//
//	logger := logging.WithRunID(logging.NewLogger(), runID)
//	logger.Error("run failed", slog.String("error", logging.SanitizeError(err)))
package logging
