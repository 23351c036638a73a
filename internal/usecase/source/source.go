// Package source fetches the daily quote from a primary content source with a
// single fallback.
package source

import (
	"context"
	"strings"
)

// ID identifies a content source implementation.
type ID string

// Known content sources.
const (
	// Bible21 scrapes the verse of the day from bible21.cz.
	Bible21 ID = "bible21"
	// VerseFeed reads a verse-of-the-day Atom/RSS feed.
	VerseFeed ID = "votd_feed"
	// Page extracts the main text of an arbitrary article page.
	Page ID = "page"
	// Static returns a fixed quote, for dry runs.
	Static ID = "static"
)

// All lists the known sources in resolution order.
var All = []ID{Bible21, VerseFeed, Page, Static}

// ParseID maps a configuration value to an ID.
func ParseID(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if id == known {
			return id, true
		}
	}
	return "", false
}

// ContentSource produces a short text passage.
// Fetch returns an empty string with a nil error when the source answered but
// had nothing to offer.
type ContentSource interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
	Valid(text string) bool
}
