package quote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"ai-slovo/internal/domain/entity"
)

// DefaultVerseFeedURL is the BibleGateway verse-of-the-day feed.
const DefaultVerseFeedURL = "https://www.biblegateway.com/votd/get/?format=atom&version=B21"

// feedFooterMarkers start boilerplate appended by feed publishers.
var feedFooterMarkers = []string{"Brought to you by", "Powered by"}

// VerseFeed reads the newest entry of a verse-of-the-day Atom/RSS feed and
// formats it as "text(reference)".
type VerseFeed struct {
	url    string
	http   *getter
	parser *gofeed.Parser
}

// NewVerseFeed creates a feed source. An empty feedURL uses the default.
func NewVerseFeed(client *http.Client, feedURL string) *VerseFeed {
	if feedURL == "" {
		feedURL = DefaultVerseFeedURL
	}
	return &VerseFeed{
		url:    feedURL,
		http:   newGetter("votd_feed", client),
		parser: gofeed.NewParser(),
	}
}

// Name implements source.ContentSource.
func (f *VerseFeed) Name() string { return "votd_feed" }

// Fetch implements source.ContentSource.
func (f *VerseFeed) Fetch(ctx context.Context) (string, error) {
	body, err := f.http.get(ctx, f.url)
	if err != nil {
		return "", err
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return "", nil
	}

	item := feed.Items[0]
	raw := item.Content
	if strings.TrimSpace(raw) == "" {
		raw = item.Description
	}
	verse, err := stripHTML(raw)
	if err != nil {
		return "", err
	}
	verse = trimFooter(verse)
	verse = strings.Trim(verse, " \"“”„")
	if verse == "" {
		return "", nil
	}

	ref := normalizeSpace(item.Title)
	if ref == "" {
		return verse, nil
	}
	return fmt.Sprintf("%s(%s)", verse, ref), nil
}

// Valid implements source.ContentSource.
func (f *VerseFeed) Valid(text string) bool {
	return entity.HasLetters(text)
}

func stripHTML(s string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parse feed HTML: %w", err)
	}
	return normalizeSpace(doc.Text()), nil
}

func trimFooter(s string) string {
	for _, m := range feedFooterMarkers {
		if i := strings.Index(s, m); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
