// Package tokenizer turns raw text into normalized terms. Normalization is
// deliberately minimal and fully deterministic: the exact same function runs
// at index time and at query time, so a query matches if and only if it
// produces the same terms the indexed text did. No stemming, no stop-words,
// no locale-aware segmentation.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize splits text on whitespace, lower-cases each token, strips leading
// and trailing punctuation and symbols, and drops tokens that end up empty.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		term := normalize(word)
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

func normalize(word string) string {
	word = strings.ToLower(word)
	return strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
