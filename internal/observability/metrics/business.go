package metrics

import "time"

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordRun records the outcome and duration of a pipeline run.
func RecordRun(success bool, duration time.Duration) {
	PipelineRunsTotal.WithLabelValues(status(success)).Inc()
	PipelineRunDuration.Observe(duration.Seconds())
}

// RecordSourceFallback records that the fallback content source was consulted.
func RecordSourceFallback() {
	SourceFallbacksTotal.Inc()
}

// RecordStyleSelected records a style draw.
func RecordStyleSelected(style string) {
	StyleSelectedTotal.WithLabelValues(style).Inc()
}

// RecordInstruction records an authored instruction.
func RecordInstruction(backend string, length int, truncated bool) {
	InstructionLength.Observe(float64(length))
	if truncated {
		InstructionTruncatedTotal.WithLabelValues(backend).Inc()
	}
}

// RecordProviderCall records a backend call. capability is "prompt" or "render".
func RecordProviderCall(capability, backend string, success bool, duration time.Duration) {
	ProviderCallsTotal.WithLabelValues(capability, backend, status(success)).Inc()
	ProviderCallDuration.WithLabelValues(capability, backend).Observe(duration.Seconds())
}

// RecordRenderFallback records a render retry on a different backend.
func RecordRenderFallback(from, to string) {
	RenderFallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordPublish records a channel delivery.
func RecordPublish(channel string, success bool, duration time.Duration) {
	PublishTotal.WithLabelValues(channel, status(success)).Inc()
	PublishDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordPublishSkipped records a channel skipped because it is disabled or its circuit is open.
func RecordPublishSkipped(channel string) {
	PublishTotal.WithLabelValues(channel, "skipped").Inc()
}

// RecordJournalWrite records a run journal write.
func RecordJournalWrite(success bool) {
	JournalWritesTotal.WithLabelValues(status(success)).Inc()
}
