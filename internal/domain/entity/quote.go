package entity

import (
	"strings"
	"time"
	"unicode"
)

// Quote is a short passage obtained from a content source.
type Quote struct {
	Text      string
	Source    string
	FetchedAt time.Time
}

// HasLetters reports whether s contains at least one letter. Sources use it to
// reject whitespace or markup residue that survived extraction.
func HasLetters(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// Enrichment is optional context attached to a run, e.g. the daily weather.
type Enrichment struct {
	// PromptContext is appended to the authoring request.
	PromptContext string
	// CaptionIcon is prefixed to channel captions.
	CaptionIcon string
}
