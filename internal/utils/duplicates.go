package utils

import (
	"strings"
)

// SuggestionFilter drops case-insensitive duplicates from a stream of
// suggestions, keeping the first occurrence.
type SuggestionFilter struct {
	seenWords map[string]bool
}

// NewSuggestionFilter creates an empty filter sized for n suggestions.
func NewSuggestionFilter(n int) *SuggestionFilter {
	return &SuggestionFilter{seenWords: make(map[string]bool, n)}
}

// ShouldInclude checks if a word should be included in results (not a duplicate)
// Returns true if the word should be included, false if it's a duplicate
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	lowerWord := strings.ToLower(word)
	if f.seenWords[lowerWord] {
		return false
	}
	f.seenWords[lowerWord] = true
	return true
}
