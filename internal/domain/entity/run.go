package entity

import "time"

// PublishOutcome records the result of delivering to one channel.
type PublishOutcome struct {
	Channel   string
	Mandatory bool
	Success   bool
	Skipped   bool
	Err       error
	Duration  time.Duration
}

// RunResult summarises one end-to-end pipeline execution.
type RunResult struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     bool
	Quote       *Quote
	Style       *Selection
	Instruction *RenderingInstruction
	Artifact    *GeneratedArtifact
	Outcomes    []PublishOutcome
	// Stage is the last stage reached, e.g. "publish".
	Stage string
	Err   error
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PublishedChannels lists the channels that accepted the post.
func (r *RunResult) PublishedChannels() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Success {
			out = append(out, o.Channel)
		}
	}
	return out
}

// RunRecord is the flattened form of a RunResult kept in the run journal.
type RunRecord struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Success        bool
	Stage          string
	Quote          string
	QuoteSource    string
	Style          string
	PromptBackend  string
	PromptFallback bool
	RenderBackend  string
	Instruction    string
	Truncated      bool
	Outcomes       []OutcomeRecord
	FailureReason  string
}

// OutcomeRecord is a PublishOutcome with the error flattened to text.
type OutcomeRecord struct {
	Channel    string `json:"channel"`
	Mandatory  bool   `json:"mandatory"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Record flattens r for persistence. errText renders errors, e.g. to strip
// credentials; nil uses Error().
func (r *RunResult) Record(errText func(error) string) RunRecord {
	if errText == nil {
		errText = func(err error) string { return err.Error() }
	}
	rec := RunRecord{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Success:    r.Success,
		Stage:      r.Stage,
	}
	if r.Quote != nil {
		rec.Quote = r.Quote.Text
		rec.QuoteSource = r.Quote.Source
	}
	if r.Style != nil {
		rec.Style = r.Style.Name
	}
	if r.Instruction != nil {
		rec.PromptBackend = r.Instruction.Backend
		rec.PromptFallback = r.Instruction.Fallback
		rec.Instruction = r.Instruction.Text
		rec.Truncated = r.Instruction.Truncated
	}
	if r.Artifact != nil {
		rec.RenderBackend = r.Artifact.Backend
	}
	for _, o := range r.Outcomes {
		or := OutcomeRecord{
			Channel:    o.Channel,
			Mandatory:  o.Mandatory,
			Success:    o.Success,
			Skipped:    o.Skipped,
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			or.Error = errText(o.Err)
		}
		rec.Outcomes = append(rec.Outcomes, or)
	}
	if r.Err != nil {
		rec.FailureReason = errText(r.Err)
	}
	return rec
}
