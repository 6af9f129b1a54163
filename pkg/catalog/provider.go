package catalog

import (
	"context"
	"time"
)

// Fetcher retrieves a complete catalog payload from upstream. A failure
// must be reported as an error, never as empty content.
type Fetcher interface {
	FetchAll(ctx context.Context) (Content, error)
}

// Provider binds a Cache to the fetcher and staleness window used to keep
// it current.
type Provider struct {
	cache   *Cache
	fetcher Fetcher
	maxAge  time.Duration
}

// NewProvider creates a provider. A nil fetcher serves whatever the cache
// holds and never refreshes. A negative maxAge means DefaultMaxAge.
func NewProvider(cache *Cache, fetcher Fetcher, maxAge time.Duration) *Provider {
	if maxAge < 0 {
		maxAge = DefaultMaxAge
	}
	return &Provider{
		cache:   cache,
		fetcher: fetcher,
		maxAge:  maxAge,
	}
}

// Cache returns the underlying cache.
func (p *Provider) Cache() *Cache {
	return p.cache
}

// Catalog returns the current entry, refreshing it first when stale. On a
// failed refresh the last known good entry is returned with the error.
func (p *Provider) Catalog(ctx context.Context) (Entry, error) {
	if p.fetcher == nil {
		return p.cache.Entry(), nil
	}
	_, err := p.cache.Serve(ctx, p.fetcher.FetchAll, p.maxAge)
	return p.cache.Entry(), err
}

// Refresh forces an upstream fetch.
func (p *Provider) Refresh(ctx context.Context) (Entry, error) {
	if p.fetcher == nil {
		return p.cache.Entry(), ErrNoFetcher
	}
	_, err := p.cache.Refresh(ctx, p.fetcher.FetchAll)
	return p.cache.Entry(), err
}

// Info summarizes the cached entry.
type Info struct {
	LastFetch time.Time
	Age       time.Duration
	Stale     bool
	Names     int
	Sets      int
	Types     int
}

// Info reports counts and freshness of the cached entry.
func (p *Provider) Info() Info {
	entry := p.cache.Entry()
	info := Info{
		LastFetch: entry.Fetched(),
		Stale:     p.cache.expired(&entry, p.maxAge),
		Names:     len(entry.Content.Names),
		Sets:      len(entry.Content.Sets),
		Types:     len(entry.Content.TypeNames()),
	}
	if !info.LastFetch.IsZero() {
		info.Age = p.cache.age(&entry)
	}
	return info
}
