package quote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ai-slovo/internal/domain/entity"
)

// Defaults for Bible21Scraper.
const (
	DefaultBibleURL   = "https://bible21.cz"
	DefaultQuoteClass = "daily-word__quote"
)

// Bible21Scraper reads the verse of the day from a span on the bible21.cz
// home page. The verse reference is part of the span text, e.g.
// "...na hlubině.(Ž107:23-24)".
type Bible21Scraper struct {
	url        string
	quoteClass string
	http       *getter
}

// NewBible21Scraper creates a scraper. Empty arguments use the defaults.
func NewBible21Scraper(client *http.Client, pageURL, quoteClass string) *Bible21Scraper {
	if pageURL == "" {
		pageURL = DefaultBibleURL
	}
	if quoteClass == "" {
		quoteClass = DefaultQuoteClass
	}
	return &Bible21Scraper{
		url:        pageURL,
		quoteClass: quoteClass,
		http:       newGetter("bible21", client),
	}
}

// Name implements source.ContentSource.
func (s *Bible21Scraper) Name() string { return "bible21" }

// Fetch returns the text of the first span carrying the quote class, or ""
// when the page has none.
func (s *Bible21Scraper) Fetch(ctx context.Context) (string, error) {
	body, err := s.http.get(ctx, s.url)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	span := doc.Find("span").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return sel.HasClass(s.quoteClass)
	}).First()
	if span.Length() == 0 {
		return "", nil
	}
	return normalizeSpace(span.Text()), nil
}

// Valid implements source.ContentSource.
func (s *Bible21Scraper) Valid(text string) bool {
	return entity.HasLetters(text)
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
