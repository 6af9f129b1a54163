package catalog

import "time"

// TypeClasses lists the type catalogs in the order they are flattened.
var TypeClasses = []string{"Creature", "Planeswalker", "Land", "Artifact", "Enchantment", "Spells"}

// Set is the subset of upstream set metadata kept in the cache. Code is
// always present.
type Set struct {
	Code          string `json:"code"`
	Name          string `json:"name,omitempty"`
	SetType       string `json:"set_type,omitempty"`
	ReleasedAt    string `json:"released_at,omitempty"`
	CardCount     int    `json:"card_count,omitempty"`
	ParentSetCode string `json:"parent_set_code,omitempty"`
	Digital       bool   `json:"digital,omitempty"`
}

// Content is one full catalog payload. It is always replaced as a whole.
type Content struct {
	Names []string            `json:"names"`
	Sets  []Set               `json:"sets"`
	Types map[string][]string `json:"types"`
}

// IsEmpty reports whether no category holds any data.
func (c Content) IsEmpty() bool {
	return len(c.Names) == 0 && len(c.Sets) == 0 && len(c.Types) == 0
}

// SetCodes returns the set codes in upstream order.
func (c Content) SetCodes() []string {
	codes := make([]string, 0, len(c.Sets))
	for _, s := range c.Sets {
		if s.Code != "" {
			codes = append(codes, s.Code)
		}
	}
	return codes
}

// TypeNames flattens the type catalogs following TypeClasses.
func (c Content) TypeNames() []string {
	total := 0
	for _, class := range TypeClasses {
		total += len(c.Types[class])
	}
	names := make([]string, 0, total)
	for _, class := range TypeClasses {
		names = append(names, c.Types[class]...)
	}
	return names
}

// Entry is the unit persisted to the store: the content and when it was
// fetched, in milliseconds since epoch. LastFetch 0 means never fetched.
type Entry struct {
	LastFetch int64   `json:"lastFetchTimestamp"`
	Content   Content `json:"content"`
}

// Fetched returns LastFetch as a time, zero when never fetched.
func (e Entry) Fetched() time.Time {
	if e.LastFetch == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.LastFetch)
}
