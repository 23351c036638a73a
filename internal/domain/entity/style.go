package entity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StyleEntry is one item of the weighted style catalog.
type StyleEntry struct {
	Name            string   `yaml:"name" json:"name"`
	Weight          int      `yaml:"weight" json:"weight"`
	Description     string   `yaml:"description" json:"description"`
	Characteristics []string `yaml:"characteristics" json:"characteristics"`
	Shortcut        string   `yaml:"shortcut" json:"shortcut"`
}

// Selection is the outcome of a weighted draw.
type Selection struct {
	Name  string
	Entry StyleEntry
}

// DisplayName turns "post_impressionism" into "Post Impressionism".
func (s StyleEntry) DisplayName() string {
	return strings.Join(titleWords(s.Name), " ")
}

// Hashtag turns "post_impressionism" into "#PostImpressionism".
func (s StyleEntry) Hashtag() string {
	return "#" + strings.Join(titleWords(s.Name), "")
}

func titleWords(name string) []string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || unicode.IsSpace(r) })
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + strings.ToLower(p[size:])
	}
	return parts
}
