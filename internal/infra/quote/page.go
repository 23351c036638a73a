package quote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/utils/text"
)

// DefaultPageQuoteLimit caps the text taken from an article page.
const DefaultPageQuoteLimit = 600

// PageExtractor takes the main text of an arbitrary page as the quote. It
// prefers the page excerpt and otherwise the first paragraph of the
// extracted article.
type PageExtractor struct {
	url   string
	limit int
	http  *getter
}

// NewPageExtractor creates a page source. A limit <= 0 uses DefaultPageQuoteLimit.
func NewPageExtractor(client *http.Client, pageURL string, limit int) *PageExtractor {
	if limit <= 0 {
		limit = DefaultPageQuoteLimit
	}
	return &PageExtractor{url: pageURL, limit: limit, http: newGetter("page", client)}
}

// Name implements source.ContentSource.
func (p *PageExtractor) Name() string { return "page" }

// Fetch implements source.ContentSource.
func (p *PageExtractor) Fetch(ctx context.Context) (string, error) {
	if p.url == "" {
		return "", fmt.Errorf("page source: no URL configured")
	}
	parsed, err := url.Parse(p.url)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	body, err := p.http.get(ctx, p.url)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}

	candidate := normalizeSpace(article.Excerpt)
	if candidate == "" {
		candidate = firstParagraph(article.TextContent)
	}
	out, _ := text.Fit(candidate, p.limit)
	return out, nil
}

// Valid implements source.ContentSource.
func (p *PageExtractor) Valid(s string) bool {
	return entity.HasLetters(s)
}

func firstParagraph(s string) string {
	for _, para := range strings.Split(s, "\n") {
		if para = normalizeSpace(para); para != "" {
			return para
		}
	}
	return ""
}
