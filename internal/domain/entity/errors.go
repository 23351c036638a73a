package entity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for domain layer operations.
var (
	// ErrEmptySource indicates that a content source answered but produced no usable text
	ErrEmptySource = errors.New("content source returned no usable text")

	// ErrNoContent indicates that neither the primary nor the fallback source produced content
	ErrNoContent = errors.New("no content available from any source")

	// ErrEmptyCatalog indicates that the style catalog is empty or carries no positive weight
	ErrEmptyCatalog = errors.New("style catalog is empty")

	// ErrNoRenderBackend indicates that no rendering backend is configured and available
	ErrNoRenderBackend = errors.New("no rendering backend available")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError represents a validation error with detailed field information.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// FailureKind classifies why a backend call failed. Routing decisions
// (cross-backend fallback, retry) are made on the kind, never on message text.
type FailureKind string

const (
	// FailureLength means the request exceeded a backend length limit.
	FailureLength FailureKind = "length"
	// FailureTransient covers timeouts, throttling and 5xx responses.
	FailureTransient FailureKind = "transient"
	// FailureOther is everything else.
	FailureOther FailureKind = "other"
)

// BackendError is returned by prompt and render backends.
type BackendError struct {
	Backend string
	Kind    FailureKind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err for backend, classifying it when kind is empty.
func NewBackendError(backend string, kind FailureKind, err error) *BackendError {
	if kind == "" {
		kind = Classify(err)
	}
	return &BackendError{Backend: backend, Kind: kind, Err: err}
}

// PublishError is returned when a distribution channel rejects a post.
type PublishError struct {
	Channel   string
	Mandatory bool
	Err       error
}

func (e *PublishError) Error() string {
	if e.Mandatory {
		return fmt.Sprintf("mandatory channel %s failed: %v", e.Channel, e.Err)
	}
	return fmt.Sprintf("channel %s failed: %v", e.Channel, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// lengthMarkers are phrases backends use when rejecting an oversized
// request. Bare words such as "length" also appear in unrelated errors.
var lengthMarkers = []string{
	"too long",
	"prompt is too",
	"exceeds maximum",
	"exceeds the maximum",
	"maximum length",
	"maximum context length",
	"length exceeds",
	"context_length_exceeded",
	"max_tokens",
	"limit exceeded",
	"exceeds the limit",
}

var transientMarkers = []string{
	"timeout",
	"timed out",
	"temporarily",
	"rate limit",
	"too many requests",
	"connection reset",
	"connection refused",
	"service unavailable",
	"bad gateway",
	"status 429",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
}

// KindOf returns the failure kind carried by err. A *BackendError anywhere
// in the chain wins; otherwise the error is classified from its shape.
func KindOf(err error) FailureKind {
	var be *BackendError
	if errors.As(err, &be) && be.Kind != "" {
		return be.Kind
	}
	return Classify(err)
}

// Classify maps an arbitrary error to a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, transientMarkers):
		return FailureTransient
	case containsAny(msg, lengthMarkers):
		return FailureLength
	}
	return FailureOther
}

// ClassifyStatus maps an HTTP status and error message to a FailureKind.
func ClassifyStatus(status int, message string) FailureKind {
	switch {
	case status == 429 || status == 408 || status >= 500:
		return FailureTransient
	case status == 413:
		return FailureLength
	}
	if containsAny(strings.ToLower(message), lengthMarkers) {
		return FailureLength
	}
	return FailureOther
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
