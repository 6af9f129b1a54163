package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitQualifier splits "key:rest" when key is made of letters only.
// "t:cre" gives ("t", "cre", true); "Circle of Protection: Red" is not
// qualified since its head contains spaces.
func SplitQualifier(s string) (key, rest string, ok bool) {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 {
		return "", s, false
	}
	for _, r := range s[:idx] {
		if !unicode.IsLetter(r) {
			return "", s, false
		}
	}
	return strings.ToLower(s[:idx]), s[idx+1:], true
}

// RuneLen counts the runes of s, which is what users perceive as typed length.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// RuneSlice returns the runes [start, end) of s, clamped to its length.
func RuneSlice(s string, start, end int) string {
	r := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return ""
	}
	return string(r[start:end])
}
