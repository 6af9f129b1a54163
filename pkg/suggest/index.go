package suggest

import (
	"slices"
	"strings"

	"github.com/bastiangx/cardserve/internal/utils"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Match is one hit in an Index: the backing list position and the rune span
// of the match inside the original value.
type Match struct {
	Pos    int
	Value  string
	Start  int
	Length int
}

// Index answers substring queries over one backing list. Folded values are
// kept in a patricia trie so prefix hits can be collected without scanning.
type Index struct {
	values []string
	folded []utils.Folded
	trie   *patricia.Trie
	accent bool
}

// NewIndex folds every value and indexes it. Several values may fold to the
// same key, so each trie item holds a list of positions.
func NewIndex(values []string, foldAccents bool) *Index {
	idx := &Index{
		values: values,
		folded: make([]utils.Folded, len(values)),
		trie:   patricia.NewTrie(),
		accent: foldAccents,
	}
	for i, v := range values {
		f := utils.Fold(v, foldAccents)
		idx.folded[i] = f
		if f.Text == "" {
			continue
		}
		key := patricia.Prefix(f.Text)
		if item := idx.trie.Get(key); item != nil {
			idx.trie.Set(key, append(item.([]int), i))
			continue
		}
		idx.trie.Insert(key, []int{i})
	}
	return idx
}

// Len returns the size of the backing list.
func (idx *Index) Len() int {
	return len(idx.values)
}

// Search returns values containing query, case-insensitively. Values that
// start with the query come first, then the remaining substring hits, both
// in backing list order. Case-insensitive duplicates are dropped. A limit of
// zero or less means no limit.
func (idx *Index) Search(query string, limit int) []Match {
	q := utils.Fold(query, idx.accent).Text
	if q == "" {
		return idx.all(limit)
	}

	var prefixed []int
	err := idx.trie.VisitSubtree(patricia.Prefix(q), func(_ patricia.Prefix, item patricia.Item) error {
		prefixed = append(prefixed, item.([]int)...)
		return nil
	})
	if err != nil {
		return nil
	}
	slices.Sort(prefixed)

	filter := utils.NewSuggestionFilter(len(prefixed))
	var matches []Match
	add := func(pos, at int) bool {
		v := idx.values[pos]
		if !filter.ShouldInclude(v) {
			return true
		}
		start, end := idx.folded[pos].Span(at, at+len(q))
		matches = append(matches, Match{Pos: pos, Value: v, Start: start, Length: end - start})
		return limit <= 0 || len(matches) < limit
	}

	seen := make(map[int]bool, len(prefixed))
	for _, pos := range prefixed {
		seen[pos] = true
		if !add(pos, 0) {
			return matches
		}
	}
	for pos, f := range idx.folded {
		if seen[pos] {
			continue
		}
		at := strings.Index(f.Text, q)
		if at < 0 {
			continue
		}
		if !add(pos, at) {
			return matches
		}
	}
	return matches
}

// all lists the backing values in order, used when browsing with no query.
func (idx *Index) all(limit int) []Match {
	filter := utils.NewSuggestionFilter(len(idx.values))
	var matches []Match
	for pos, v := range idx.values {
		if v == "" || !filter.ShouldInclude(v) {
			continue
		}
		matches = append(matches, Match{Pos: pos, Value: v})
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches
}

