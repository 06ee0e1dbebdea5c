package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"status":"success","country":"France","countryCode":"FR","regionName":"Île-de-France","city":"Paris","lat":48.85,"lon":2.35}`

func newTestLocator(t *testing.T, srv *httptest.Server) (*Locator, *[]time.Duration) {
	t.Helper()
	l := NewLocator(Config{BaseURL: srv.URL + "/json/", CacheDir: t.TempDir()}, nil)
	var slept []time.Duration
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return l, &slept
}

func TestLookup_CachesSuccessfulResponse(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/json/1.2.3.4", r.URL.Path)
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	l, _ := newTestLocator(t, srv)

	loc, ok := l.Lookup(context.Background(), "1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, "Paris", loc.City)
	assert.Equal(t, "Île-de-France", loc.Region)
	assert.Equal(t, "France", loc.CountryName)
	assert.Equal(t, "FR", loc.CountryCode)
	require.NotNil(t, loc.Latitude)
	assert.InDelta(t, 48.85, *loc.Latitude, 0.0001)

	_, ok = l.Lookup(context.Background(), "1.2.3.4")
	require.True(t, ok)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	raw, err := os.ReadFile(l.cacheFile("1.2.3.4"))
	require.NoError(t, err)
	var entry map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "data")
}

func TestLookup_ExpiredCacheRefetches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	l, _ := newTestLocator(t, srv)

	stale, err := json.Marshal(cacheEntry{
		Timestamp: time.Now().Add(-25 * time.Hour).Unix(),
		Data:      &Location{City: "Stale"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.cacheFile("5.6.7.8"), stale, 0o644))

	loc, ok := l.Lookup(context.Background(), "5.6.7.8")
	require.True(t, ok)
	assert.Equal(t, "Paris", loc.City)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestLookup_RetriesOnRateLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	l, slept := newTestLocator(t, srv)

	loc, ok := l.Lookup(context.Background(), "9.9.9.9")
	require.True(t, ok)
	assert.Equal(t, "Paris", loc.City)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept)
}

func TestLookup_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	l, _ := newTestLocator(t, srv)

	_, ok := l.Lookup(context.Background(), "9.9.9.9")
	assert.False(t, ok)
	assert.EqualValues(t, DefaultMaxRetries, atomic.LoadInt32(&hits))
	assert.Equal(t, "", l.FormattedLocation(context.Background(), "9.9.9.9"))
}

func TestLookup_FailStatusIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer srv.Close()

	l, _ := newTestLocator(t, srv)

	_, ok := l.Lookup(context.Background(), "10.0.0.1")
	assert.False(t, ok)
	_, err := os.Stat(l.cacheFile("10.0.0.1"))
	assert.True(t, os.IsNotExist(err))
}

func TestLookup_EmptyIP(t *testing.T) {
	l := NewLocator(Config{CacheDir: t.TempDir()}, nil)
	_, ok := l.Lookup(context.Background(), "  ")
	assert.False(t, ok)
}

func TestFormattedLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","country":"Kenya","city":"Nairobi"}`))
	}))
	defer srv.Close()

	l, _ := newTestLocator(t, srv)
	assert.Equal(t, "Nairobi, Kenya", l.FormattedLocation(context.Background(), "41.0.0.1"))
}
