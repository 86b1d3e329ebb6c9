package httputil

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

const defaultLRUMaxEntries = 256

// CacheTransport is an http.RoundTripper that memoizes successful GET responses
// for the life of a run, keyed by URL. Scrapers that share a source page (the
// three Pittsburgh Filmmakers screens, repeated search fallbacks) fetch it once.
type CacheTransport struct {
	Base http.RoundTripper

	// MaxEntries bounds the LRU. Zero means defaultLRUMaxEntries.
	MaxEntries int

	// Clock drives max-age expiry. Nil means the real clock.
	Clock clockwork.Clock

	// OnCacheHit, if set, is called for every GET with the cache key and whether it was a hit.
	OnCacheHit func(cacheKey string, hit bool)

	initOnce sync.Once
	cache    *lru.Cache[string, *cachedResponse]
	initErr  error
}

type cachedResponse struct {
	Status  int
	Header  http.Header
	Body    []byte
	Expires time.Time // zero = until evicted
}

func (t *CacheTransport) ensureCache() error {
	t.initOnce.Do(func() {
		size := t.MaxEntries
		if size <= 0 {
			size = defaultLRUMaxEntries
		}
		if t.Clock == nil {
			t.Clock = clockwork.NewRealClock()
		}
		t.cache, t.initErr = lru.New[string, *cachedResponse](size)
	})
	return t.initErr
}

func (t *CacheTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base().RoundTrip(req)
	}
	if err := t.ensureCache(); err != nil {
		return nil, err
	}
	key := req.URL.String()

	if !requestWantsFresh(req) {
		if entry, ok := t.cache.Get(key); ok {
			if entry.Expires.IsZero() || t.Clock.Now().Before(entry.Expires) {
				t.notify(key, true)
				return entry.response(req), nil
			}
			t.cache.Remove(key)
		}
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.notify(key, false)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}
	noStore, maxAge := responseCacheControl(resp.Header)
	if noStore {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	entry := &cachedResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}
	if maxAge > 0 {
		entry.Expires = t.Clock.Now().Add(time.Duration(maxAge) * time.Second)
	}
	t.cache.Add(key, entry)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

func (t *CacheTransport) notify(key string, hit bool) {
	if t.OnCacheHit != nil {
		t.OnCacheHit(key, hit)
	}
}

func (c *cachedResponse) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        strconv.Itoa(c.Status) + " " + http.StatusText(c.Status),
		StatusCode:    c.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        c.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

// requestWantsFresh reports whether Cache-Control on the request asks to bypass the cache.
func requestWantsFresh(req *http.Request) bool {
	for part := range strings.SplitSeq(req.Header.Get("Cache-Control"), ",") {
		part = strings.TrimSpace(part)
		if part == "no-cache" {
			return true
		}
		if after, ok := strings.CutPrefix(part, "max-age="); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(after)); err == nil && n <= 0 {
				return true
			}
		}
	}
	return false
}

// responseCacheControl returns whether the response forbids storing and its max-age in seconds.
func responseCacheControl(header http.Header) (noStore bool, maxAge int) {
	for _, cc := range header.Values("Cache-Control") {
		for part := range strings.SplitSeq(cc, ",") {
			part = strings.TrimSpace(strings.ToLower(part))
			switch {
			case part == "no-store":
				noStore = true
			case strings.HasPrefix(part, "max-age="), strings.HasPrefix(part, "s-maxage="):
				_, val, _ := strings.Cut(part, "=")
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					maxAge = n
				}
			}
		}
	}
	return noStore, maxAge
}
