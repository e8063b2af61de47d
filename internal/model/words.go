package model

import (
	"strings"
	"unicode"
)

// NormalizeWords splits free text into word-cloud tokens. Each
// whitespace-separated token keeps only letters, apostrophes and hyphens and
// is lowercased; tokens left empty are dropped.
func NormalizeWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || r == '\'' || r == '-' {
				return unicode.ToLower(r)
			}
			return -1
		}, f)
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
