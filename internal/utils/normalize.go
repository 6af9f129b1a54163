package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks drops combining marks left behind by NFD decomposition.
// runes.Remove keeps no state between calls, so sharing it is safe.
var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Letters that carry no decomposition in Unicode but are still typed as
// plain ASCII by most people.
var ligatures = strings.NewReplacer(
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ß", "ss",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"þ", "th", "Þ", "TH",
)

// FoldAccents removes diacritics and expands ligatures, so "Æther Vial"
// becomes "AEther Vial" and "Lim-Dûl" becomes "Lim-Dul".
func FoldAccents(s string) string {
	out, _, err := transform.String(stripMarks, norm.NFD.String(s))
	if err != nil {
		out = s
	}
	return ligatures.Replace(out)
}

// Folded is a lowercased, optionally accent folded copy of a string that
// remembers which rune of the original produced each byte of Text.
type Folded struct {
	Text  string
	owner []int
}

// Fold lowercases s and, when accents is set, strips diacritics. Folding is
// done rune by rune so matches in Text can be mapped back onto s.
func Fold(s string, accents bool) Folded {
	var b strings.Builder
	b.Grow(len(s))
	owner := make([]int, 0, len(s))

	i := 0
	for _, r := range s {
		piece := strings.ToLower(string(r))
		if accents {
			piece = FoldAccents(piece)
		}
		b.WriteString(piece)
		for range len(piece) {
			owner = append(owner, i)
		}
		i++
	}
	return Folded{Text: b.String(), owner: owner}
}

// Span converts the byte range [start, end) of Text into the rune range of
// the original string that produced it.
func (f Folded) Span(start, end int) (int, int) {
	if start < 0 || end > len(f.owner) || start >= end {
		if start >= 0 && start < len(f.owner) {
			return f.owner[start], f.owner[start]
		}
		return 0, 0
	}
	return f.owner[start], f.owner[end-1] + 1
}
