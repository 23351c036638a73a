package text

import (
	"regexp"
	"strings"
	"unicode"
)

const ellipsis = "..."

// ellipsisLossRatio is the share of the original text that must be cut away
// before an ellipsis marks the truncation.
const ellipsisLossRatio = 0.10

// boundaryWindow is how far back a hard cut may move to land on whitespace,
// as a fraction of the limit.
const boundaryWindow = 0.8

// FillerPhrases are removed verbatim, in order, while a text is over budget.
// They are boilerplate that authoring models tend to prepend to image prompts.
var FillerPhrases = []string{
	"Create an image of ",
	"Create an image that ",
	"Generate an image of ",
	"The image should ",
	"This image should ",
	"It is important to note that ",
	"Please note that ",
	"Make sure to ",
	"that captures the essence of ",
	"in order to ",
}

// Intensifiers are removed as whole words while a text is over budget.
var Intensifiers = []string{
	"very",
	"extremely",
	"incredibly",
	"highly",
	"deeply",
	"truly",
	"really",
	"absolutely",
	"remarkably",
	"profoundly",
	"utterly",
}

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// Fit shortens s so that it holds at most limit characters.
//
// Text already within the limit is returned unchanged. Otherwise filler
// phrases and then intensifiers are dropped one at a time, stopping as soon
// as the text fits. If that is not enough the text is cut at the limit,
// backing up to a whitespace boundary when one lies within the last 20% of
// the budget, and an ellipsis is appended (inside the budget) when more than
// 10% of the original was lost. The second return value reports whether s
// was changed. Fit is idempotent.
func Fit(s string, limit int) (string, bool) {
	if limit < 0 {
		limit = 0
	}
	original := CountRunes(s)
	if original <= limit {
		return s, false
	}

	out := s
	for _, phrase := range FillerPhrases {
		if !strings.Contains(out, phrase) {
			continue
		}
		out = collapseSpaces(strings.ReplaceAll(out, phrase, ""))
		if CountRunes(out) <= limit {
			return out, true
		}
	}
	for _, word := range Intensifiers {
		token := " " + word + " "
		if !strings.Contains(out, token) {
			continue
		}
		out = collapseSpaces(strings.ReplaceAll(out, token, " "))
		if CountRunes(out) <= limit {
			return out, true
		}
	}

	return cut(out, limit, original), true
}

func cut(s string, limit, original int) string {
	runes := []rune(s)
	res := hardCut(runes, limit)

	lost := original - CountRunes(res)
	ellipsisLen := CountRunes(ellipsis)
	if float64(lost) > ellipsisLossRatio*float64(original) && limit > ellipsisLen {
		res = hardCut(runes, limit-ellipsisLen) + ellipsis
	}
	return res
}

// hardCut keeps at most limit runes, preferring to end at whitespace.
func hardCut(runes []rune, limit int) string {
	if len(runes) <= limit {
		return string(runes)
	}
	if limit <= 0 {
		return ""
	}

	at := limit
	floor := int(boundaryWindow * float64(limit))
	for i := limit; i >= floor && i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			at = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:at]), unicode.IsSpace)
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// BudgetStats describes how a text relates to a character budget.
type BudgetStats struct {
	Characters   int
	Words        int
	Limit        int
	WithinBudget bool
	// OverBy is the number of characters above the limit, zero when within.
	OverBy int
	// UsedPercent is Characters relative to Limit; zero when Limit is zero.
	UsedPercent float64
}

// Stats reports diagnostics for s against limit.
func Stats(s string, limit int) BudgetStats {
	chars := CountRunes(s)
	st := BudgetStats{
		Characters:   chars,
		Words:        len(strings.Fields(s)),
		Limit:        limit,
		WithinBudget: chars <= limit,
	}
	if chars > limit {
		st.OverBy = chars - limit
	}
	if limit > 0 {
		st.UsedPercent = float64(chars) * 100 / float64(limit)
	}
	return st
}
