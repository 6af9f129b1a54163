// Package catalog caches the upstream card catalog (names, sets, types) with
// a staleness window and keeps a copy on disk between runs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/cardserve/internal/logger"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxAge is the staleness window used when none is given.
const DefaultMaxAge = 24 * time.Hour

const refreshKey = "catalog"

// ErrNoFetcher is returned when a refresh is needed but nothing can fetch.
var ErrNoFetcher = errors.New("catalog: no fetcher configured")

// FetchFunc retrieves a fresh, complete payload.
type FetchFunc func(ctx context.Context) (Content, error)

// Cache holds the latest catalog entry. The entry is swapped as a whole, so
// readers never see a half updated payload. Safe for concurrent use.
type Cache struct {
	store  Store
	now    func() time.Time
	logger *log.Logger

	entry  atomic.Pointer[Entry]
	group  singleflight.Group
	saveMu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger used for cache events.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache creates an empty cache persisted through store. Call Load to
// restore a previous run. A nil store keeps everything in memory.
func NewCache(store Store, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore(Entry{})
	}
	c := &Cache{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.New("catalog")
	}
	c.entry.Store(&Entry{})
	return c
}

// Entry returns the current entry.
func (c *Cache) Entry() Entry {
	return *c.entry.Load()
}

// Load restores the entry from the store. A missing or unreadable store is a
// cold start, never an error.
func (c *Cache) Load() {
	entry, err := c.store.Load()
	if err != nil {
		c.logger.Warn("cache store unreadable, starting cold", "err", err)
		c.entry.Store(&Entry{})
		return
	}
	c.entry.Store(&entry)
	c.logger.Debug("loaded catalog cache",
		"names", len(entry.Content.Names),
		"sets", len(entry.Content.Sets),
		"lastFetch", entry.LastFetch)
}

// Save writes the current entry to the store.
func (c *Cache) Save() error {
	return c.persist(c.entry.Load())
}

// Serve returns the cached content while it is younger than maxAge.
// Otherwise it calls fetch, swaps in the result, saves it and returns it.
// Concurrent callers that need a refresh share one fetch. When the fetch
// fails the cache is left untouched and the previous content is returned
// together with the error.
func (c *Cache) Serve(ctx context.Context, fetch FetchFunc, maxAge time.Duration) (Content, error) {
	if maxAge < 0 {
		maxAge = DefaultMaxAge
	}
	current := c.entry.Load()
	if !c.expired(current, maxAge) {
		c.logger.Debug("serving cached catalog", "age", c.age(current))
		return current.Content, nil
	}
	c.logger.Debug("catalog expired or empty, fetching", "lastFetch", current.LastFetch)

	next, err := c.refresh(ctx, fetch, func() bool {
		return !c.expired(c.entry.Load(), maxAge)
	})
	if err != nil {
		return current.Content, err
	}
	return next.Content, nil
}

// Refresh fetches regardless of age.
func (c *Cache) Refresh(ctx context.Context, fetch FetchFunc) (Content, error) {
	current := c.entry.Load()
	next, err := c.refresh(ctx, fetch, nil)
	if err != nil {
		return current.Content, err
	}
	return next.Content, nil
}

// refresh runs fetch at most once at a time. fresh, when set, is checked
// inside the flight so a caller arriving right after a refresh finished
// does not trigger another one. The fetch is detached from ctx: a caller
// that stops waiting only drops the result.
func (c *Cache) refresh(ctx context.Context, fetch FetchFunc, fresh func() bool) (*Entry, error) {
	if fetch == nil {
		return nil, ErrNoFetcher
	}
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		if fresh != nil && fresh() {
			return c.entry.Load(), nil
		}
		now := c.now().UnixMilli()
		content, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.Warn("catalog fetch failed, keeping previous data", "err", err)
			return nil, err
		}
		next := &Entry{LastFetch: now, Content: content}
		c.entry.Store(next)
		if err := c.persist(next); err != nil {
			c.logger.Warn("failed to persist catalog cache", "err", err)
		}
		c.logger.Info("catalog refreshed",
			"names", len(content.Names),
			"sets", len(content.Sets),
			"types", len(content.Types))
		return next, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("refresh catalog: %w", res.Err)
		}
		return res.Val.(*Entry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) persist(entry *Entry) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return c.store.Save(*entry)
}

// expired reports whether entry must be refreshed before serving.
func (c *Cache) expired(entry *Entry, maxAge time.Duration) bool {
	if entry == nil || entry.LastFetch == 0 || entry.Content.IsEmpty() {
		return true
	}
	return c.now().UnixMilli()-entry.LastFetch > maxAge.Milliseconds()
}

func (c *Cache) age(entry *Entry) time.Duration {
	if entry.LastFetch == 0 {
		return 0
	}
	return time.Duration(c.now().UnixMilli()-entry.LastFetch) * time.Millisecond
}
