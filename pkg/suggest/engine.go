// Package suggest turns partially typed queries into candidate lists and
// drives the keyboard and pointer selection over those lists.
package suggest

import (
	"context"
	"reflect"
	"sync"

	"github.com/bastiangx/cardserve/internal/logger"
	"github.com/bastiangx/cardserve/pkg/catalog"
	"github.com/charmbracelet/log"
)

// DefaultMaxResults caps a candidate list when no limit is configured.
const DefaultMaxResults = 50

// Source hands out the current catalog entry. catalog.Provider implements
// it; on failure it still returns whatever entry it holds.
type Source interface {
	Catalog(ctx context.Context) (catalog.Entry, error)
}

// Engine matches queries against the category table.
type Engine struct {
	source     Source
	categories []Category
	byKey      map[string]int
	maxResults int
	logger     *log.Logger

	mu         sync.Mutex
	static     map[string]*Index
	dynamic    map[Kind]*Index
	generation generation
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxResults caps candidate lists, zero meaning no cap.
func WithMaxResults(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxResults = n
		}
	}
}

// WithCategories replaces DefaultCategories.
func WithCategories(cats []Category) EngineOption {
	return func(e *Engine) {
		e.categories = cats
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine builds an engine over source. A nil source serves empty
// catalog lists, leaving only the static categories useful.
func NewEngine(source Source, opts ...EngineOption) *Engine {
	e := &Engine{
		source:     source,
		categories: DefaultCategories(),
		maxResults: DefaultMaxResults,
		static:     make(map[string]*Index),
		dynamic:    make(map[Kind]*Index),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.New("suggest")
	}

	e.byKey = make(map[string]int)
	for i, cat := range e.categories {
		for _, k := range cat.Keys {
			e.byKey[normalizeKey(k)] = i
		}
	}
	return e
}

// Lookup finds the category bound to key, case-insensitively.
func (e *Engine) Lookup(key string) (Category, bool) {
	i, ok := e.byKey[normalizeKey(key)]
	if !ok {
		return Category{}, false
	}
	return e.categories[i], true
}

// IsKey reports whether key selects a category.
func (e *Engine) IsKey(key string) bool {
	_, ok := e.byKey[normalizeKey(key)]
	return ok
}

// Categories returns the category table.
func (e *Engine) Categories() []Category {
	return e.categories
}

// MaxResults returns the configured cap.
func (e *Engine) MaxResults() int {
	return e.maxResults
}

// Suggest returns the candidates for query under prefix. An unknown prefix
// gives no candidates and no error. When the catalog cannot be refreshed
// the error is returned alongside candidates matched on stale data.
func (e *Engine) Suggest(ctx context.Context, prefix, query string) ([]Candidate, error) {
	return e.SuggestN(ctx, prefix, query, e.maxResults)
}

// SuggestN is Suggest with an explicit limit, zero meaning no limit.
func (e *Engine) SuggestN(ctx context.Context, prefix, query string, limit int) ([]Candidate, error) {
	cat, ok := e.Lookup(prefix)
	if !ok {
		e.logger.Debugf("unknown prefix %q", prefix)
		return nil, nil
	}

	idx, err := e.index(ctx, cat)
	if err != nil {
		e.logger.Warn("catalog unavailable, matching on cached data", "err", err)
	}

	commitKey := normalizeKey(prefix)
	if cat.Kind == KindNames {
		commitKey = ""
	}

	matches := idx.Search(query, limit)
	candidates := make([]Candidate, len(matches))
	for i, m := range matches {
		candidates[i] = Candidate{
			Value:  m.Value,
			Prefix: commitKey,
			Start:  m.Start,
			Length: m.Length,
		}
	}
	return candidates, err
}

// index returns the index for cat. Catalog indexes are rebuilt whenever the
// source hands out an entry from a newer fetch.
func (e *Engine) index(ctx context.Context, cat Category) (*Index, error) {
	if cat.Kind == KindStatic {
		e.mu.Lock()
		defer e.mu.Unlock()
		idx, ok := e.static[cat.Name]
		if !ok {
			idx = NewIndex(cat.Values, cat.FoldAccents)
			e.static[cat.Name] = idx
		}
		return idx, nil
	}

	var (
		entry catalog.Entry
		err   error
	)
	if e.source != nil {
		entry, err = e.source.Catalog(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen := generationOf(entry); gen != e.generation {
		e.dynamic = make(map[Kind]*Index)
		e.generation = gen
	}
	idx, ok := e.dynamic[cat.Kind]
	if !ok {
		idx = NewIndex(backingList(entry.Content, cat.Kind), cat.FoldAccents)
		e.dynamic[cat.Kind] = idx
	}
	return idx, err
}

// generation identifies the content an index was built from. The cache
// swaps whole entries, so a new payload always comes with new backing
// arrays even when the fetch timestamp repeats.
type generation struct {
	lastFetch          int64
	names, sets, types uintptr
	counts             [3]int
}

func generationOf(entry catalog.Entry) generation {
	c := entry.Content
	return generation{
		lastFetch: entry.LastFetch,
		names:     reflect.ValueOf(c.Names).Pointer(),
		sets:      reflect.ValueOf(c.Sets).Pointer(),
		types:     reflect.ValueOf(c.Types).Pointer(),
		counts:    [3]int{len(c.Names), len(c.Sets), len(c.Types)},
	}
}

func backingList(c catalog.Content, kind Kind) []string {
	switch kind {
	case KindNames:
		return c.Names
	case KindSets:
		return c.SetCodes()
	case KindTypes:
		return c.TypeNames()
	default:
		return nil
	}
}
