package suggest

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// Board owns the fields of one page. At most one of its lists is open.
type Board struct {
	engine    *Engine
	minMatch  int
	renderer  Renderer
	submitter Submitter
	logger    *log.Logger

	mu     sync.Mutex
	fields map[string]*Field
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithBoardRenderer sets the renderer fields use unless they bring their own.
func WithBoardRenderer(r Renderer) BoardOption {
	return func(b *Board) {
		b.renderer = r
	}
}

// WithBoardSubmitter sets the submitter fields use unless they bring their own.
func WithBoardSubmitter(s Submitter) BoardOption {
	return func(b *Board) {
		b.submitter = s
	}
}

// NewBoard creates an empty board. minMatch below 1 means
// DefaultMinMatchLength.
func NewBoard(engine *Engine, minMatch int, opts ...BoardOption) *Board {
	if minMatch < 1 {
		minMatch = DefaultMinMatchLength
	}
	b := &Board{
		engine:   engine,
		minMatch: minMatch,
		logger:   engine.logger,
		fields:   make(map[string]*Field),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach registers a field under id, detaching any previous one.
func (b *Board) Attach(id string, opts ...FieldOption) *Field {
	base := []FieldOption{WithMinMatchLength(b.minMatch)}
	if b.renderer != nil {
		base = append(base, WithRenderer(b.renderer))
	}
	if b.submitter != nil {
		base = append(base, WithSubmitter(b.submitter))
	}
	f := NewField(id, b.engine, append(base, opts...)...)
	f.onOpen = b.exclusive

	b.mu.Lock()
	old := b.fields[id]
	b.fields[id] = f
	b.mu.Unlock()

	if old != nil {
		old.Detach()
	}
	b.logger.Debug("attached field", "field", id, "prefix", f.prefix)
	return f
}

// Field looks up an attached field.
func (b *Board) Field(id string) (*Field, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.fields[id]
	return f, ok
}

// Fields returns the attached field ids, sorted.
func (b *Board) Fields() []string {
	b.mu.Lock()
	ids := make([]string, 0, len(b.fields))
	for id := range b.fields {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Detach removes a field. Its list is closed and late results are dropped.
func (b *Board) Detach(id string) bool {
	b.mu.Lock()
	f, ok := b.fields[id]
	delete(b.fields, id)
	b.mu.Unlock()

	if ok {
		f.Detach()
	}
	return ok
}

// Click dispatches a page click to every field and reports whether one of
// them committed a candidate.
func (b *Board) Click(target Target) bool {
	committed := false
	for _, f := range b.snapshot() {
		if f.Click(target) {
			committed = true
		}
	}
	return committed
}

// CloseAll closes every open list.
func (b *Board) CloseAll() {
	for _, f := range b.snapshot() {
		f.Close()
	}
}

// exclusive closes every list except the one owned by open.
func (b *Board) exclusive(open *Field) {
	for _, f := range b.snapshot() {
		if f != open {
			f.Close()
		}
	}
}

func (b *Board) snapshot() []*Field {
	b.mu.Lock()
	defer b.mu.Unlock()
	fields := make([]*Field, 0, len(b.fields))
	for _, f := range b.fields {
		fields = append(fields, f)
	}
	return fields
}
