package text_test

import (
	"strings"
	"testing"

	"ai-slovo/internal/utils/text"
)

/* ───────── Character counting ───────── */

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "ASCII text", input: "hello world", expected: 11},
		{name: "Czech diacritics", input: "Hospodinovy skutky", expected: 18},
		{name: "Czech only accented", input: "ěščřžýáíé", expected: 9},
		{name: "emoji", input: "☀️🌧", expected: 3},
		{name: "empty string", input: "", expected: 0},
		{name: "whitespace", input: " \t\n", expected: 3},
		{name: "long ASCII", input: strings.Repeat("a", 1500), expected: 1500},
		{name: "long Czech", input: strings.Repeat("ž", 1500), expected: 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.expected {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}
