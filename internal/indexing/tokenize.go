package indexing

import (
	"strings"

	"github.com/prism-search/prism/internal/types"
)

// Tokenize splits text into lowercase terms. A term is a run of ASCII
// letters, digits, and underscores of at least MinTokenLength; every
// other byte (including any non-ASCII byte) is a separator. The returned
// slice preserves occurrence order and may contain duplicates.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)

	var terms []string
	start := -1
	for i := 0; i < len(lower); i++ {
		if isTokenChar(lower[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start >= types.MinTokenLength {
				terms = append(terms, lower[start:i])
			}
			start = -1
		}
	}
	if start >= 0 && len(lower)-start >= types.MinTokenLength {
		terms = append(terms, lower[start:])
	}

	return terms
}

// UniqueTokens returns the distinct terms of text in first-seen order.
func UniqueTokens(text string) []string {
	terms := Tokenize(text)
	if len(terms) < 2 {
		return terms
	}

	seen := make(map[string]bool, len(terms))
	unique := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	return unique
}

// isTokenChar reports whether b is part of a term after lowercasing.
func isTokenChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '_'
}
