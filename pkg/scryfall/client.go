// Package scryfall fetches the card catalog (names, sets, type lists) from
// the Scryfall API. It implements catalog.Fetcher.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bastiangx/cardserve/internal/logger"
	"github.com/bastiangx/cardserve/pkg/catalog"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Scryfall API.
const DefaultBaseURL = "https://api.scryfall.com"

const (
	setsEndpoint  = "/sets"
	namesEndpoint = "/catalog/card-names"
)

// typeEndpoints maps each catalog.TypeClasses entry to its catalog.
var typeEndpoints = map[string]string{
	"Creature":     "/catalog/creature-types",
	"Planeswalker": "/catalog/planeswalker-types",
	"Land":         "/catalog/land-types",
	"Artifact":     "/catalog/artifact-types",
	"Enchantment":  "/catalog/enchantment-types",
	"Spells":       "/catalog/spell-types",
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Endpoint string
	Status   int
	Details  string
}

func (e *StatusError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("scryfall %s: status %d: %s", e.Endpoint, e.Status, e.Details)
	}
	return fmt.Sprintf("scryfall %s: status %d", e.Endpoint, e.Status)
}

// listResponse is the envelope shared by catalog and list objects.
type listResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

type errorResponse struct {
	Details string `json:"details"`
}

// Client talks to Scryfall. Requests are paced by a token bucket since the
// API asks clients to stay around ten requests per second.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per request timeout on the default http client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRateLimit caps requests per second. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(10), 1),
		userAgent: "cardserve",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.New("scryfall")
	}
	return c
}

// FetchNames returns every card name.
func (c *Client) FetchNames(ctx context.Context) ([]string, error) {
	return fetchList[string](ctx, c, namesEndpoint)
}

// FetchSets returns all set metadata.
func (c *Client) FetchSets(ctx context.Context) ([]catalog.Set, error) {
	return fetchList[catalog.Set](ctx, c, setsEndpoint)
}

// FetchTypes returns the six type catalogs keyed by class.
func (c *Client) FetchTypes(ctx context.Context) (map[string][]string, error) {
	var mu sync.Mutex
	types := make(map[string][]string, len(catalog.TypeClasses))

	g, gctx := errgroup.WithContext(ctx)
	for _, class := range catalog.TypeClasses {
		endpoint := typeEndpoints[class]
		g.Go(func() error {
			values, err := fetchList[string](gctx, c, endpoint)
			if err != nil {
				return err
			}
			mu.Lock()
			types[class] = values
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return types, nil
}

// FetchAll retrieves names, sets and types in parallel. Any failure fails
// the whole payload so the cache never stores a partial catalog.
func (c *Client) FetchAll(ctx context.Context) (catalog.Content, error) {
	var content catalog.Content
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		names, err := c.FetchNames(gctx)
		content.Names = names
		return err
	})
	g.Go(func() error {
		sets, err := c.FetchSets(gctx)
		content.Sets = sets
		return err
	})
	g.Go(func() error {
		types, err := c.FetchTypes(gctx)
		content.Types = types
		return err
	})
	if err := g.Wait(); err != nil {
		return catalog.Content{}, err
	}

	c.logger.Debug("fetched catalog",
		"names", len(content.Names),
		"sets", len(content.Sets),
		"took", time.Since(start))
	return content, nil
}

// fetchList GETs endpoint and returns its data array. A response without a
// data array is an error, not an empty list.
func fetchList[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var payload listResponse[T]
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("scryfall %s: response has no data", endpoint)
	}
	return payload.Data, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("scryfall %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("scryfall %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("GET", "endpoint", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scryfall %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{Endpoint: endpoint, Status: resp.StatusCode}
		var body errorResponse
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(data, &body) == nil {
				statusErr.Details = body.Details
			}
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("scryfall %s: decode: %w", endpoint, err)
	}
	return nil
}
