package publish

import "errors"

// Sentinel errors for publish use case operations.
var (
	// ErrChannelDisabled indicates that Publish was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrNoArtifact indicates that there is nothing to publish.
	ErrNoArtifact = errors.New("no artifact to publish")

	// ErrCircuitBreakerOpen indicates that the channel failed repeatedly and
	// is being skipped until its cool-down expires.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")
)
