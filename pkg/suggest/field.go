package suggest

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/bastiangx/cardserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Key is a navigation key a field reacts to.
type Key int

const (
	KeyUnknown Key = iota
	KeyDown
	KeyUp
	KeyEnter
	KeyEscape
	KeyTab
	KeyRight
)

var keyNames = map[string]Key{
	"down": KeyDown, "arrowdown": KeyDown, "40": KeyDown,
	"up": KeyUp, "arrowup": KeyUp, "38": KeyUp,
	"enter": KeyEnter, "return": KeyEnter, "13": KeyEnter,
	"escape": KeyEscape, "esc": KeyEscape, "27": KeyEscape,
	"tab": KeyTab, "9": KeyTab,
	"right": KeyRight, "arrowright": KeyRight, "39": KeyRight,
}

// ParseKey accepts DOM key names ("ArrowDown") and legacy key codes ("40").
func ParseKey(s string) Key {
	return keyNames[strings.ToLower(strings.TrimSpace(s))]
}

func (k Key) String() string {
	switch k {
	case KeyDown:
		return "down"
	case KeyUp:
		return "up"
	case KeyEnter:
		return "enter"
	case KeyEscape:
		return "escape"
	case KeyTab:
		return "tab"
	case KeyRight:
		return "right"
	default:
		return "unknown"
	}
}

// ListIDFor returns the id of the candidate list owned by field.
func ListIDFor(field string) string {
	return field + "autocomplete-list"
}

// TargetKind classifies what a pointer click landed on.
type TargetKind int

const (
	TargetOutside TargetKind = iota
	TargetInput
	TargetList
	TargetCandidate
)

// Target is a click location. ID is a field id for TargetInput and a list
// id otherwise.
type Target struct {
	Kind  TargetKind
	ID    string
	Index int
}

// Outside is a click on anything that is not an input or a list.
func Outside() Target { return Target{Kind: TargetOutside} }

// InputOf is a click on a field's input.
func InputOf(field string) Target { return Target{Kind: TargetInput, ID: field} }

// ListOf is a click on a list but not on one of its candidates.
func ListOf(listID string) Target { return Target{Kind: TargetList, ID: listID} }

// CandidateOf is a click on candidate i of a list.
func CandidateOf(listID string, i int) Target {
	return Target{Kind: TargetCandidate, ID: listID, Index: i}
}

// ParseTarget reads "input:<field>", "list:<list>" or "item:<list>:<index>".
// Anything else is an outside click.
func ParseTarget(s string) Target {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return Outside()
	}
	switch kind {
	case "input":
		return InputOf(rest)
	case "list":
		return ListOf(rest)
	case "item":
		at := strings.LastIndexByte(rest, ':')
		if at <= 0 {
			return Outside()
		}
		i, err := strconv.Atoi(rest[at+1:])
		if err != nil || i < 0 {
			return Outside()
		}
		return CandidateOf(rest[:at], i)
	default:
		return Outside()
	}
}

// List is a rendered candidate list.
type List struct {
	ID         string      `msgpack:"id"`
	Field      string      `msgpack:"field"`
	Candidates []Candidate `msgpack:"candidates"`
	Focus      int         `msgpack:"focus"`
}

// Renderer draws lists. It receives whole lists and decides itself how to
// update the view. Renderers must not call back into the field.
type Renderer interface {
	Render(list List)
	Focus(listID string, index int)
	Close(listID string)
}

// Submitter is told once per commit.
type Submitter interface {
	Submit(field, value string)
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(field, value string)

func (fn SubmitFunc) Submit(field, value string) { fn(field, value) }

type nopRenderer struct{}

func (nopRenderer) Render(List)       {}
func (nopRenderer) Focus(string, int) {}
func (nopRenderer) Close(string)      {}

// FieldOption configures a Field.
type FieldOption func(*Field)

// WithPrefix pins the field to one category. Values may still carry the
// "prefix:" qualifier, which is stripped before matching.
func WithPrefix(prefix string) FieldOption {
	return func(f *Field) {
		f.prefix = normalizeKey(prefix)
	}
}

// WithRenderer sets the renderer.
func WithRenderer(r Renderer) FieldOption {
	return func(f *Field) {
		f.renderer = r
	}
}

// WithSubmitter sets the submitter.
func WithSubmitter(s Submitter) FieldOption {
	return func(f *Field) {
		f.submitter = s
	}
}

// WithMinMatchLength overrides the minimum typed length before a list opens.
func WithMinMatchLength(n int) FieldOption {
	return func(f *Field) {
		f.sel = NewSelection(n)
	}
}

// WithFieldLogger sets the logger.
func WithFieldLogger(l *log.Logger) FieldOption {
	return func(f *Field) {
		f.logger = l
	}
}

// Field is one search input with its candidate list.
//
// Handlers recover from panics in the engine and in callbacks. The field is
// then closed and keeps accepting events.
type Field struct {
	id        string
	listID    string
	prefix    string
	engine    *Engine
	renderer  Renderer
	submitter Submitter
	logger    *log.Logger
	onOpen    func(*Field)

	mu         sync.Mutex
	value      string
	sel        Selection
	candidates []Candidate
	seq        uint64
	applied    uint64
	detached   bool
}

// NewField creates a standalone field. Fields attached through a Board also
// close each other's lists.
func NewField(id string, engine *Engine, opts ...FieldOption) *Field {
	f := &Field{
		id:     id,
		listID: ListIDFor(id),
		engine: engine,
		sel:    NewSelection(DefaultMinMatchLength),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.renderer == nil {
		f.renderer = nopRenderer{}
	}
	if f.logger == nil {
		f.logger = engine.logger
	}
	return f
}

// ID returns the field id.
func (f *Field) ID() string { return f.id }

// ListID returns the id of the field's list.
func (f *Field) ListID() string { return f.listID }

// Value returns the current input value.
func (f *Field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Selection returns a copy of the selection state.
func (f *Field) Selection() Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sel
}

// Candidates returns the rendered candidates.
func (f *Field) Candidates() []Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Candidate(nil), f.candidates...)
}

// Input handles a change of the input value. The list opens when the query
// is long enough and has candidates, and closes otherwise. A catalog error
// is returned after the list was evaluated on stale data.
func (f *Field) Input(ctx context.Context, value string) (err error) {
	defer f.rescue("input")

	f.mu.Lock()
	if f.detached {
		f.mu.Unlock()
		return nil
	}
	f.value = value
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	return f.evaluate(ctx, seq, value, false)
}

// Key handles a navigation key and reports whether it was consumed.
func (f *Field) Key(ctx context.Context, key Key) (consumed bool, err error) {
	defer f.rescue("key " + key.String())

	f.mu.Lock()
	if f.detached {
		f.mu.Unlock()
		return false, nil
	}

	switch key {
	case KeyDown:
		if !f.sel.IsOpen() {
			f.sel.MinMatchLength = 1
			f.seq++
			seq, value := f.seq, f.value
			f.mu.Unlock()
			return true, f.evaluate(ctx, seq, value, true)
		}
		i := f.sel.Down()
		f.mu.Unlock()
		f.call("focus", func() { f.renderer.Focus(f.listID, i) })
		return true, nil

	case KeyUp:
		if !f.sel.IsOpen() {
			f.mu.Unlock()
			return true, nil
		}
		i := f.sel.Up()
		f.mu.Unlock()
		f.call("focus", func() { f.renderer.Focus(f.listID, i) })
		return true, nil

	case KeyEnter:
		i, ok := f.sel.Focused()
		f.mu.Unlock()
		if !ok {
			return false, nil
		}
		return f.commit(i), nil

	case KeyEscape:
		wasOpen := f.dismissLocked()
		f.mu.Unlock()
		if wasOpen {
			f.call("close", func() { f.renderer.Close(f.listID) })
		}
		return wasOpen, nil

	case KeyTab, KeyRight:
		i, ok := f.sel.Focused()
		if !ok {
			f.mu.Unlock()
			return false, nil
		}
		f.value = f.candidates[i].Text()
		f.mu.Unlock()
		return true, nil

	default:
		f.mu.Unlock()
		return false, nil
	}
}

// Click handles a pointer click anywhere on the page and reports whether it
// committed a candidate of this field.
func (f *Field) Click(target Target) (committed bool) {
	defer f.rescue("click")

	switch {
	case target.Kind == TargetCandidate && target.ID == f.listID:
		f.mu.Lock()
		valid := f.sel.IsOpen() && target.Index >= 0 && target.Index < len(f.candidates)
		f.mu.Unlock()
		if valid {
			return f.commit(target.Index)
		}
		return false
	case target.Kind == TargetInput && target.ID == f.id:
		return false
	case target.Kind == TargetList && target.ID == f.listID:
		return false
	}
	f.Close()
	return false
}

// Blur closes the list when the input loses focus.
func (f *Field) Blur() {
	defer f.rescue("blur")
	f.Close()
}

// Close removes the list, if one is open.
func (f *Field) Close() {
	f.mu.Lock()
	wasOpen := f.dismissLocked()
	f.mu.Unlock()
	if wasOpen {
		f.call("close", func() { f.renderer.Close(f.listID) })
	}
}

// Detach closes the field for good. Results still in flight are dropped.
func (f *Field) Detach() {
	defer f.rescue("detach")

	f.mu.Lock()
	f.detached = true
	wasOpen := f.dismissLocked()
	f.mu.Unlock()
	if wasOpen {
		f.call("close", func() { f.renderer.Close(f.listID) })
	}
}

// parse splits value into category key and query.
func (f *Field) parse(value string) (prefix, query string) {
	key, rest, ok := utils.SplitQualifier(value)
	if f.prefix != "" {
		if ok && key == f.prefix {
			return f.prefix, strings.TrimLeft(rest, " ")
		}
		return f.prefix, value
	}
	if ok && f.engine.IsKey(key) {
		return key, strings.TrimLeft(rest, " ")
	}
	return "", value
}

func (f *Field) evaluate(ctx context.Context, seq uint64, value string, force bool) error {
	prefix, query := f.parse(value)

	f.mu.Lock()
	minLen := f.sel.MinMatchLength
	f.mu.Unlock()

	var (
		candidates []Candidate
		err        error
	)
	if force || (query != "" && utils.RuneLen(query) >= minLen) {
		candidates, err = f.engine.Suggest(ctx, prefix, query)
	}

	f.mu.Lock()
	if f.detached || seq < f.applied {
		f.mu.Unlock()
		f.logger.Debug("dropping stale result", "field", f.id, "seq", seq)
		return err
	}
	f.applied = seq
	wasOpen := f.sel.IsOpen()
	if len(candidates) == 0 {
		f.closeLocked()
		f.mu.Unlock()
		if wasOpen {
			f.call("close", func() { f.renderer.Close(f.listID) })
		}
		return err
	}
	f.candidates = candidates
	f.sel.Open(f.listID, len(candidates))
	list := List{ID: f.listID, Field: f.id, Candidates: candidates, Focus: -1}
	f.mu.Unlock()

	if f.onOpen != nil {
		f.onOpen(f)
	}
	f.call("render", func() { f.renderer.Render(list) })
	return err
}

// commit applies candidate i, closes the list and submits once.
func (f *Field) commit(i int) bool {
	f.mu.Lock()
	if i < 0 || i >= len(f.candidates) {
		f.mu.Unlock()
		return false
	}
	value := f.candidates[i].Text()
	f.value = value
	f.dismissLocked()
	f.mu.Unlock()

	f.call("close", func() { f.renderer.Close(f.listID) })
	if f.submitter != nil {
		f.call("submit", func() { f.submitter.Submit(f.id, value) })
	}
	return true
}

// closeLocked resets the selection and reports whether a list was open.
func (f *Field) closeLocked() bool {
	wasOpen := f.sel.IsOpen()
	f.sel.Close()
	f.candidates = nil
	return wasOpen
}

// dismissLocked closes the list on behalf of the user. Results still in
// flight were started before the close and must not reopen it.
func (f *Field) dismissLocked() bool {
	f.seq++
	f.applied = f.seq
	return f.closeLocked()
}

// call runs a renderer or submitter callback, closing the field if it panics.
func (f *Field) call(op string, fn func()) {
	defer f.rescue(op)
	fn()
}

func (f *Field) rescue(op string) {
	r := recover()
	if r == nil {
		return
	}
	f.logger.Error("handler panicked", "field", f.id, "op", op, "panic", r)
	f.mu.Lock()
	f.closeLocked()
	f.mu.Unlock()
}
