package quote

import (
	"context"

	"ai-slovo/internal/domain/entity"
)

// DefaultStaticQuote is used for dry runs.
const DefaultStaticQuote = "Ti, kteří se vydávají na lodích na moře, kdo konají dílo na nesmírných vodách, spatřili Hospodinovy skutky, jeho divy na hlubině.(Ž107:23-24)"

// Static always returns the same text.
type Static struct {
	text string
}

// NewStatic creates a static source. An empty text uses DefaultStaticQuote.
func NewStatic(text string) *Static {
	if text == "" {
		text = DefaultStaticQuote
	}
	return &Static{text: text}
}

// Name implements source.ContentSource.
func (s *Static) Name() string { return "static" }

// Fetch implements source.ContentSource.
func (s *Static) Fetch(context.Context) (string, error) { return s.text, nil }

// Valid implements source.ContentSource.
func (s *Static) Valid(text string) bool { return entity.HasLetters(text) }
