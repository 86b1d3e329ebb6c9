package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestUnit_CacheTransport_ServesRepeatGetsFromMemory(t *testing.T) {
	server, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>schedule</html>"))
	})
	var events []bool
	client := &http.Client{Transport: &CacheTransport{
		Base:       server.Client().Transport,
		OnCacheHit: func(_ string, hit bool) { events = append(events, hit) },
	}}

	for range 3 {
		body, err := FetchBytes(t.Context(), client, server.URL+"/film")
		require.NoError(t, err)
		assert.Equal(t, "<html>schedule</html>", string(body))
	}
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, []bool{false, true, true}, events)
}

func TestUnit_CacheTransport_HonorsMaxAge(t *testing.T) {
	server, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "max-age=60")
		_, _ = w.Write([]byte("ok"))
	})
	clock := clockwork.NewFakeClock()
	client := &http.Client{Transport: &CacheTransport{Base: server.Client().Transport, Clock: clock}}

	_, err := FetchBytes(t.Context(), client, server.URL)
	require.NoError(t, err)
	_, err = FetchBytes(t.Context(), client, server.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	clock.Advance(2 * time.Minute)
	_, err = FetchBytes(t.Context(), client, server.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestUnit_CacheTransport_SkipsErrorsAndNoStore(t *testing.T) {
	server, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte("ok"))
	})
	client := &http.Client{Transport: &CacheTransport{Base: server.Client().Transport}}

	for range 2 {
		_, err := FetchBytes(t.Context(), client, server.URL+"/missing")
		require.ErrorIs(t, err, ErrRequestFailed)
		_, err = FetchBytes(t.Context(), client, server.URL+"/fresh")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 4, hits.Load())
}

func TestUnit_FetchBytes_Blocked(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		server, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		_, err := FetchBytes(t.Context(), server.Client(), server.URL)
		require.ErrorIs(t, err, ErrBlocked)
	}
}

func TestUnit_NewClient_SetsUserAgent(t *testing.T) {
	var got string
	server, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><body><h4 class=\"title\">Hi</h4></body></html>"))
	})
	client := NewClient(WithTransport(server.Client().Transport), WithUserAgent("marquee-test"), WithRateLimit(0, 0))

	doc, err := FetchDocument(t.Context(), client, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "marquee-test", got)
	assert.Equal(t, "Hi", doc.Find("h4.title").Text())
}

func TestUnit_RateLimitTransport_RespectsContext(t *testing.T) {
	server, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	client := &http.Client{Transport: &RateLimitTransport{
		Base:              server.Client().Transport,
		RequestsPerSecond: 0.001,
		Burst:             1,
	}}

	_, err := FetchBytes(t.Context(), client, server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = FetchBytes(ctx, client, server.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}
