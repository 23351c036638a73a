// Package text provides rune-aware helpers for measuring and shortening text
// handed to generation backends and distribution channels.
package text

import "unicode/utf8"

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Budgets are expressed in characters, so Czech diacritics and emoji count as one.
//
//	CountRunes("hello")   // 5
//	CountRunes("Žalm")    // 4
//	CountRunes("")        // 0
func CountRunes(text string) int {
	return utf8.RuneCountInString(text)
}
