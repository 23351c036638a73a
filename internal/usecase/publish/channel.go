// Package publish delivers a generated image to the distribution channels.
// One channel is mandatory and its failure fails the run; the others are
// best effort.
package publish

import (
	"context"
	"time"

	"ai-slovo/internal/domain/entity"
)

// Post carries what channels need to caption an image.
type Post struct {
	Quote string
	Style entity.StyleEntry
	// WeatherIcon is an optional emoji prefixed to captions.
	WeatherIcon string
	Date        time.Time
}

// Channel is a distribution destination.
//
// Implementations apply their own rate limiting and retry policy, must
// respect context cancellation, and must not mutate the artifact; any
// transformation (re-encoding, resizing) produces a new artifact.
type Channel interface {
	// Name returns the lowercase channel identifier used in logs and metrics.
	Name() string

	// IsEnabled reports whether the channel is configured. Disabled optional
	// channels are skipped.
	IsEnabled() bool

	// Publish posts the artifact with a channel specific caption.
	Publish(ctx context.Context, artifact *entity.GeneratedArtifact, post Post) error
}
