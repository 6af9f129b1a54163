package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bastiangx/cardserve/internal/logger"
	"github.com/bastiangx/cardserve/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "catalog", "data": data})
}

func newFakeScryfall(t *testing.T, broken string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(namesEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []string{"Lightning Bolt", "Lili's Charm"})
	})
	mux.HandleFunc(setsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]any{
			{"code": "lea", "name": "Limited Edition Alpha", "set_type": "core", "card_count": 295},
			{"code": "mh3", "name": "Modern Horizons 3", "digital": false},
		})
	})
	for class, endpoint := range typeEndpoints {
		mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
			writeData(w, []string{class + "-a", class + "-b"})
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		if r.URL.Path == broken {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"object":"error","details":"down for maintenance"}`))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(url string) *Client {
	return New(url, WithRateLimit(0), WithLogger(logger.Discard()), WithUserAgent("cardserve-test"))
}

func TestFetchAll(t *testing.T) {
	srv, hits := newFakeScryfall(t, "")
	c := newTestClient(srv.URL)

	content, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Lightning Bolt", "Lili's Charm"}, content.Names)
	require.Len(t, content.Sets, 2)
	assert.Equal(t, "lea", content.Sets[0].Code)
	assert.Equal(t, "Limited Edition Alpha", content.Sets[0].Name)
	assert.Equal(t, 295, content.Sets[0].CardCount)
	assert.Len(t, content.Types, len(catalog.TypeClasses))
	assert.Equal(t, []string{"Creature-a", "Creature-b"}, content.Types["Creature"])
	assert.Equal(t, []string{"Spells-a", "Spells-b"}, content.Types["Spells"])
	assert.EqualValues(t, 8, hits.Load())
}

func TestFetchAllFailsOnAnyEndpoint(t *testing.T) {
	srv, _ := newFakeScryfall(t, "/catalog/land-types")
	c := newTestClient(srv.URL)

	content, err := c.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, content.IsEmpty())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Equal(t, "down for maintenance", statusErr.Details)
}

func TestFetchMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"catalog"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchNames(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [1, 2`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestFetchCanceled(t *testing.T) {
	srv, _ := newFakeScryfall(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL).FetchAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDefaults(t *testing.T) {
	c := New("", WithLogger(logger.Discard()))
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	c = New("http://example.test/", WithLogger(logger.Discard()))
	assert.Equal(t, "http://example.test", c.baseURL)
}

func TestClientImplementsFetcher(t *testing.T) {
	var _ catalog.Fetcher = (*Client)(nil)
}
