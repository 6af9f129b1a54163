package suggest

import (
	"strings"

	"github.com/bastiangx/cardserve/internal/utils"
)

// Candidate is one suggestion offered for the current query.
type Candidate struct {
	// Value is the literal catalog string.
	Value string `msgpack:"v"`
	// Prefix is the category key the value commits under, "" for names.
	Prefix string `msgpack:"p,omitempty"`
	// Start and Length give the rune span of the match inside Value.
	Start  int `msgpack:"s"`
	Length int `msgpack:"n"`
}

// MatchedPrefixLength is the rune length of the text that matched the query.
func (c Candidate) MatchedPrefixLength() int {
	return c.Length
}

// Text is what gets written into the input when the candidate is picked.
func (c Candidate) Text() string {
	if c.Prefix == "" {
		return c.Value
	}
	return c.Prefix + ":" + c.Value
}

// Markup returns the escaped value with the matched span wrapped in <strong>.
func (c Candidate) Markup() string {
	end := c.Start + c.Length
	var b strings.Builder
	b.WriteString(EscapeValue(utils.RuneSlice(c.Value, 0, c.Start)))
	if c.Length > 0 {
		b.WriteString("<strong>")
		b.WriteString(EscapeValue(utils.RuneSlice(c.Value, c.Start, end)))
		b.WriteString("</strong>")
	}
	b.WriteString(EscapeValue(utils.RuneSlice(c.Value, end, utils.RuneLen(c.Value))))
	return b.String()
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// EscapeValue makes s safe inside element text and quoted attributes.
func EscapeValue(s string) string {
	return escaper.Replace(s)
}
