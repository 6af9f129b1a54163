package suggest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bastiangx/cardserve/pkg/catalog"
)

type recorder struct {
	mu       sync.Mutex
	events   []string
	submits  []string
	panicOn  string
	rendered map[string]List
}

func newRecorder() *recorder {
	return &recorder{rendered: make(map[string]List)}
}

func (r *recorder) record(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if r.panicOn != "" && strings.HasPrefix(ev, r.panicOn) {
		panic("renderer blew up on " + ev)
	}
}

func (r *recorder) Render(l List) {
	r.mu.Lock()
	r.rendered[l.ID] = l
	r.mu.Unlock()
	r.record(fmt.Sprintf("render:%s:%d", l.ID, len(l.Candidates)))
}

func (r *recorder) Focus(listID string, i int) {
	r.record(fmt.Sprintf("focus:%s:%d", listID, i))
}

func (r *recorder) Close(listID string) {
	r.record("close:" + listID)
}

func (r *recorder) Submit(field, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits = append(r.submits, field+"="+value)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

func typeEntry() catalog.Entry {
	return catalog.Entry{
		LastFetch: 1,
		Content: catalog.Content{
			Names: []string{"Lightning Bolt", "Liliana, Heretical Healer", "Llanowar Elves"},
			Types: map[string][]string{
				"Creature": {"Creature"},
				"Land":     {"Land"},
				"Artifact": {"Artifact"},
			},
		},
	}
}

func newTestField(t *testing.T, opts ...FieldOption) (*Field, *recorder) {
	t.Helper()
	rec := newRecorder()
	engine := newTestEngine(&fakeSource{entry: typeEntry()})
	base := []FieldOption{WithRenderer(rec), WithSubmitter(rec)}
	return NewField("search", engine, append(base, opts...)...), rec
}

func TestSelectionNavigation(t *testing.T) {
	s := NewSelection(3)
	if s.IsOpen() || s.Focus != -1 {
		t.Fatalf("new selection should be closed and unfocused: %+v", s)
	}

	s.Open("list", 3)
	var got []int
	for range 4 {
		got = append(got, s.Down())
	}
	if fmt.Sprint(got) != "[0 1 2 0]" {
		t.Errorf("Down sequence = %v, want [0 1 2 0]", got)
	}

	s.Open("list", 3)
	if i := s.Up(); i != 2 {
		t.Errorf("Up from -1 = %d, want 2", i)
	}
	if i := s.Up(); i != 1 {
		t.Errorf("Up from 2 = %d, want 1", i)
	}
	if i, ok := s.Focused(); !ok || i != 1 {
		t.Errorf("Focused() = %d, %v", i, ok)
	}

	s.Close()
	if s.IsOpen() || s.Focus != -1 || s.Count != 0 {
		t.Errorf("Close left state behind: %+v", s)
	}
	if i := s.Down(); i != -1 {
		t.Errorf("Down on closed selection = %d, want -1", i)
	}

	s.Open("list", 0)
	if s.IsOpen() {
		t.Errorf("opening an empty list should stay closed")
	}
	if NewSelection(0).MinMatchLength != 1 {
		t.Errorf("min match length should be clamped to 1")
	}
}

func TestSelectionSnapshot(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestField(t, WithPrefix("t"))

	if err := f.Input(ctx, "cre"); err != nil {
		t.Fatalf("Input() error = %v", err)
	}
	if _, err := f.Key(ctx, KeyDown); err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	snap := f.Selection()
	if !snap.IsOpen() {
		t.Fatalf("snapshot should report the open list: %+v", snap)
	}
	if i, ok := f.Selection().Focused(); !ok || i != 0 {
		t.Errorf("Focused() on snapshot = %d, %v, want 0, true", i, ok)
	}

	// the snapshot is a copy
	snap.Close()
	if !f.Selection().IsOpen() {
		t.Errorf("closing a snapshot closed the field")
	}
}

func TestCommitScenario(t *testing.T) {
	testCases := []struct {
		name  string
		opts  []FieldOption
		input string
	}{
		{"fixed prefix", []FieldOption{WithPrefix("t")}, "cre"},
		{"qualified value", nil, "t:cre"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f, rec := newTestField(t, tc.opts...)

			if err := f.Input(ctx, tc.input); err != nil {
				t.Fatalf("Input: %v", err)
			}
			cands := f.Candidates()
			if len(cands) != 1 || cands[0].Value != "Creature" {
				t.Fatalf("candidates = %v, want [Creature]", values(cands))
			}
			if sel := f.Selection(); !sel.IsOpen() || sel.Focus != -1 {
				t.Fatalf("selection after input = %+v, want Open(-1)", sel)
			}

			if ok, _ := f.Key(ctx, KeyDown); !ok {
				t.Fatalf("Down not consumed")
			}
			if rec.last() != "focus:"+f.ListID()+":0" {
				t.Errorf("last event = %q", rec.last())
			}
			if ok, _ := f.Key(ctx, KeyEnter); !ok {
				t.Fatalf("Enter not consumed")
			}

			if f.Value() != "t:Creature" {
				t.Errorf("value = %q, want t:Creature", f.Value())
			}
			if f.Selection().IsOpen() {
				t.Errorf("list still open after commit")
			}
			if len(rec.submits) != 1 || rec.submits[0] != "search=t:Creature" {
				t.Errorf("submits = %v, want exactly one", rec.submits)
			}
		})
	}
}

func TestMinLengthGate(t *testing.T) {
	ctx := context.Background()
	f, rec := newTestField(t, WithPrefix("t"))

	_ = f.Input(ctx, "cr")
	if f.Selection().IsOpen() || len(rec.events) != 0 {
		t.Fatalf("typing %q should not render, events %v", "cr", rec.events)
	}

	_ = f.Input(ctx, "cre")
	if !f.Selection().IsOpen() || len(f.Candidates()) == 0 {
		t.Fatalf("typing %q should open the list", "cre")
	}

	_ = f.Input(ctx, "cr")
	if f.Selection().IsOpen() {
		t.Errorf("shortening below the minimum should close the list")
	}
	if rec.last() != "close:"+f.ListID() {
		t.Errorf("last event = %q, want close", rec.last())
	}
}

func TestDownOnClosedBrowses(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestField(t, WithPrefix("f"))

	_ = f.Input(ctx, "")
	if f.Selection().IsOpen() {
		t.Fatalf("empty input opened a list")
	}

	if ok, _ := f.Key(ctx, KeyDown); !ok {
		t.Fatalf("Down not consumed")
	}
	sel := f.Selection()
	if !sel.IsOpen() || sel.Count != len(Finishes) || sel.MinMatchLength != 1 {
		t.Fatalf("selection after Down = %+v", sel)
	}

	// the lowered minimum sticks for later typing
	_ = f.Input(ctx, "e")
	if cands := f.Candidates(); len(cands) != 1 || cands[0].Value != "etched" {
		t.Errorf("candidates = %v, want [etched]", values(cands))
	}
}

func TestKeysOnClosedList(t *testing.T) {
	ctx := context.Background()
	f, rec := newTestField(t)

	testCases := []struct {
		key      Key
		consumed bool
	}{
		{KeyUp, true},
		{KeyEnter, false},
		{KeyEscape, false},
		{KeyTab, false},
		{KeyRight, false},
		{KeyUnknown, false},
	}
	for _, tc := range testCases {
		if ok, _ := f.Key(ctx, tc.key); ok != tc.consumed {
			t.Errorf("Key(%s) consumed = %v, want %v", tc.key, ok, tc.consumed)
		}
	}
	if len(rec.events) != 0 || len(rec.submits) != 0 {
		t.Errorf("closed list produced events %v submits %v", rec.events, rec.submits)
	}
}

func TestEscapeAndEnterWithoutFocus(t *testing.T) {
	ctx := context.Background()
	f, rec := newTestField(t)

	_ = f.Input(ctx, "lil")
	if ok, _ := f.Key(ctx, KeyEnter); ok {
		t.Errorf("Enter without focus should not be consumed")
	}
	if !f.Selection().IsOpen() {
		t.Fatalf("Enter without focus closed the list")
	}

	_, _ = f.Key(ctx, KeyDown)
	if ok, _ := f.Key(ctx, KeyEscape); !ok {
		t.Errorf("Escape on an open list should be consumed")
	}
	if sel := f.Selection(); sel.IsOpen() || sel.Focus != -1 {
		t.Errorf("selection after Escape = %+v", sel)
	}
	if len(rec.submits) != 0 {
		t.Errorf("Escape submitted %v", rec.submits)
	}
}

func TestTabCopiesWithoutClosing(t *testing.T) {
	ctx := context.Background()
	f, rec := newTestField(t)

	_ = f.Input(ctx, "t:cre")
	_, _ = f.Key(ctx, KeyDown)
	if ok, _ := f.Key(ctx, KeyTab); !ok {
		t.Fatalf("Tab not consumed")
	}
	if f.Value() != "t:Creature" {
		t.Errorf("value = %q", f.Value())
	}
	if !f.Selection().IsOpen() {
		t.Errorf("Tab closed the list")
	}

	_ = f.Input(ctx, "llan")
	_, _ = f.Key(ctx, KeyDown)
	_, _ = f.Key(ctx, KeyRight)
	if f.Value() != "Llanowar Elves" {
		t.Errorf("value = %q, want Llanowar Elves", f.Value())
	}
	if len(rec.submits) != 0 {
		t.Errorf("Tab or Right submitted %v", rec.submits)
	}
}

func TestClickTargets(t *testing.T) {
	ctx := context.Background()
	f, rec := newTestField(t)

	_ = f.Input(ctx, "li")
	_ = f.Input(ctx, "lil")
	if !f.Selection().IsOpen() {
		t.Fatalf("list not open")
	}

	f.Click(InputOf(f.ID()))
	f.Click(ListOf(f.ListID()))
	if !f.Selection().IsOpen() {
		t.Fatalf("clicking the input or the list closed it")
	}

	if !f.Click(CandidateOf(f.ListID(), 0)) {
		t.Fatalf("candidate click did not commit")
	}
	if f.Value() != "Liliana, Heretical Healer" || len(rec.submits) != 1 {
		t.Errorf("value %q submits %v", f.Value(), rec.submits)
	}

	_ = f.Input(ctx, "bolt")
	if f.Click(CandidateOf("otherautocomplete-list", 0)) {
		t.Errorf("click on another list committed")
	}
	if f.Selection().IsOpen() {
		t.Errorf("click elsewhere should close the list")
	}

	_ = f.Input(ctx, "bolt")
	f.Blur()
	if f.Selection().IsOpen() {
		t.Errorf("Blur should close the list")
	}
}

func TestUnknownQualifierIsAName(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestField(t)

	_ = f.Input(ctx, "zz:bolt")
	if f.Selection().IsOpen() {
		t.Errorf("unknown qualifier should match names literally, got %v", values(f.Candidates()))
	}
}

func TestPanicRecovery(t *testing.T) {
	ctx := context.Background()
	f, rec := newTestField(t)
	rec.panicOn = "render"

	if err := f.Input(ctx, "bolt"); err != nil {
		t.Fatalf("Input returned %v", err)
	}
	if f.Selection().IsOpen() {
		t.Fatalf("field should be closed after a renderer panic")
	}

	rec.panicOn = ""
	_ = f.Input(ctx, "bolt")
	if !f.Selection().IsOpen() {
		t.Fatalf("field stopped working after a panic")
	}

	rec.panicOn = "focus"
	_, _ = f.Key(ctx, KeyDown)
	if f.Selection().IsOpen() {
		t.Errorf("field should be closed after a focus panic")
	}
}

type gatedSource struct {
	entry   catalog.Entry
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSource) Catalog(ctx context.Context) (catalog.Entry, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.entry, nil
}

func TestStaleResultDropped(t *testing.T) {
	ctx := context.Background()
	src := &gatedSource{entry: typeEntry(), entered: make(chan struct{}), release: make(chan struct{})}
	f := NewField("search", newTestEngine(src))

	done := make(chan error)
	go func() { done <- f.Input(ctx, "bolt") }()
	<-src.entered

	_ = f.Input(ctx, "lili")
	close(src.release)
	<-done

	cands := f.Candidates()
	if len(cands) != 1 || cands[0].Value != "Liliana, Heretical Healer" {
		t.Errorf("older keystroke overwrote newer result: %v", values(cands))
	}
}

func TestDismissDropsPendingResult(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		dismiss func(*Field)
	}{
		{"escape", func(f *Field) { _, _ = f.Key(ctx, KeyEscape) }},
		{"blur", func(f *Field) { f.Blur() }},
		{"outside click", func(f *Field) { f.Click(Outside()) }},
		{"close", func(f *Field) { f.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &gatedSource{entry: typeEntry(), entered: make(chan struct{}), release: make(chan struct{})}
			rec := newRecorder()
			f := NewField("search", newTestEngine(src), WithRenderer(rec))

			done := make(chan error)
			go func() { done <- f.Input(ctx, "bolt") }()
			<-src.entered

			tt.dismiss(f)
			close(src.release)
			<-done

			if f.Selection().IsOpen() {
				t.Errorf("list reopened after %s: %v", tt.name, rec.events)
			}
			if _, ok := rec.rendered[f.ListID()]; ok {
				t.Errorf("pending result rendered after %s", tt.name)
			}

			if err := f.Input(ctx, "bolt"); err != nil {
				t.Fatalf("Input() error = %v", err)
			}
			if !f.Selection().IsOpen() {
				t.Errorf("new input after %s should open the list", tt.name)
			}
		})
	}
}

func TestDetach(t *testing.T) {
	ctx := context.Background()
	f, rec := newTestField(t)

	_ = f.Input(ctx, "bolt")
	f.Detach()
	if rec.last() != "close:"+f.ListID() {
		t.Errorf("detach did not close the list: %v", rec.events)
	}

	_ = f.Input(ctx, "bolt")
	if f.Selection().IsOpen() {
		t.Errorf("detached field reopened")
	}
}

func TestBoardExclusive(t *testing.T) {
	ctx := context.Background()
	rec := newRecorder()
	board := NewBoard(newTestEngine(&fakeSource{entry: typeEntry()}), 3,
		WithBoardRenderer(rec), WithBoardSubmitter(rec))

	a := board.Attach("a")
	b := board.Attach("b", WithPrefix("t"))

	_ = a.Input(ctx, "bolt")
	_ = b.Input(ctx, "land")
	if a.Selection().IsOpen() {
		t.Errorf("opening b should close a")
	}
	if !b.Selection().IsOpen() {
		t.Errorf("b should be open")
	}

	board.Click(Outside())
	if b.Selection().IsOpen() {
		t.Errorf("outside click should close b")
	}

	_ = b.Input(ctx, "land")
	if !board.Click(CandidateOf(b.ListID(), 0)) {
		t.Fatalf("board click on candidate did not commit")
	}
	if b.Value() != "t:Land" {
		t.Errorf("b value = %q", b.Value())
	}

	if got := board.Fields(); fmt.Sprint(got) != "[a b]" {
		t.Errorf("Fields() = %v", got)
	}
	if !board.Detach("a") || board.Detach("a") {
		t.Errorf("Detach should succeed once")
	}
	if _, ok := board.Field("a"); ok {
		t.Errorf("a still attached")
	}
}

func TestParseKeyAndTarget(t *testing.T) {
	keys := map[string]Key{
		"ArrowDown": KeyDown, "40": KeyDown, "up": KeyUp, "Enter": KeyEnter,
		"13": KeyEnter, "Escape": KeyEscape, "27": KeyEscape, "Tab": KeyTab,
		"39": KeyRight, "ArrowRight": KeyRight, "space": KeyUnknown,
	}
	for in, want := range keys {
		if got := ParseKey(in); got != want {
			t.Errorf("ParseKey(%q) = %s, want %s", in, got, want)
		}
	}

	targets := []struct {
		in   string
		want Target
	}{
		{"input:search", InputOf("search")},
		{"list:searchautocomplete-list", ListOf("searchautocomplete-list")},
		{"item:searchautocomplete-list:2", CandidateOf("searchautocomplete-list", 2)},
		{"item:nolist", Outside()},
		{"item:x:-1", Outside()},
		{"body", Outside()},
		{"", Outside()},
	}
	for _, tc := range targets {
		if got := ParseTarget(tc.in); got != tc.want {
			t.Errorf("ParseTarget(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
