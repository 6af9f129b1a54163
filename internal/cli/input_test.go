package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bastiangx/cardserve/internal/logger"
	"github.com/bastiangx/cardserve/pkg/catalog"
	"github.com/bastiangx/cardserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func newTestHandler(prefix string) (*InputHandler, *bytes.Buffer) {
	store := catalog.NewMemoryStore(catalog.Entry{
		LastFetch: 1,
		Content: catalog.Content{
			Names: []string{"Lightning Bolt", "Liliana of the Veil"},
			Types: map[string][]string{"Creature": {"Creature"}, "Land": {"Land"}},
		},
	})
	cache := catalog.NewCache(store, catalog.WithLogger(logger.Discard()))
	cache.Load()
	provider := catalog.NewProvider(cache, nil, -1)
	engine := suggest.NewEngine(provider, suggest.WithEngineLogger(logger.Discard()))

	var out bytes.Buffer
	h := NewInputHandler(engine, provider, 3, 10, prefix)
	return h, &out
}

func TestCommitFromKeyboard(t *testing.T) {
	h, out := newTestHandler("t")
	h.SetIO(strings.NewReader("cre\n/down\n/enter\n"), out)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := out.String()
	for _, want := range []string{"1. ", "Creature", "value: t:Creature", "submitted: t:Creature"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestClickAndInfo(t *testing.T) {
	h, out := newTestHandler("")
	h.SetIO(strings.NewReader("bolt\n/click 1\n/info\n/nope\n"), out)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "submitted: Lightning Bolt") {
		t.Errorf("click did not submit:\n%s", got)
	}
	if !strings.Contains(got, "names") || !strings.Contains(got, "sets") {
		t.Errorf("info table missing:\n%s", got)
	}
}

func TestShortInputShowsNothing(t *testing.T) {
	h, out := newTestHandler("")
	h.SetIO(strings.NewReader("bo\n/up\n"), out)

	_ = h.Start(context.Background())
	got := out.String()
	if strings.Contains(got, "Lightning") {
		t.Errorf("list opened below the minimum length:\n%s", got)
	}
	if !strings.Contains(got, "no suggestions") {
		t.Errorf("missing no-suggestions hint:\n%s", got)
	}
}
