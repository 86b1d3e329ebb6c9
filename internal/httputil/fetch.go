package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultUserAgent identifies as a desktop browser; several theater sites refuse
// the Go default.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var (
	// ErrBlocked means the source refused us (robots policy or anti-bot wall).
	ErrBlocked = errors.New("blocked by source")
	// ErrRequestFailed covers any other non-2xx response.
	ErrRequestFailed = errors.New("request failed")
)

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout   time.Duration
	rps       float64
	burst     int
	userAgent string
	base      http.RoundTripper
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRateLimit sets per-host pacing. Zero disables it.
func WithRateLimit(requestsPerSecond float64, burst int) ClientOption {
	return func(c *clientConfig) {
		c.rps = requestsPerSecond
		c.burst = burst
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) { c.userAgent = ua }
}

// WithTransport sets the innermost transport (e.g. httptest.Server.Client().Transport in tests).
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) { c.base = rt }
}

// NewClient builds the shared scraping client: user agent, then per-host rate
// limiting, then the response cache, in front of the base transport.
func NewClient(opts ...ClientOption) *http.Client {
	cfg := &clientConfig{
		timeout:   30 * time.Second,
		rps:       DefaultRequestsPerSecond,
		burst:     DefaultBurst,
		userAgent: DefaultUserAgent,
		base:      http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	var rt http.RoundTripper = &CacheTransport{Base: cfg.base}
	rt = &RateLimitTransport{Base: rt, RequestsPerSecond: cfg.rps, Burst: cfg.burst}
	rt = &userAgentTransport{base: rt, userAgent: cfg.userAgent}
	return &http.Client{Timeout: cfg.timeout, Transport: rt}
}

// FetchBytes GETs url and returns the body of a 2xx response.
func FetchBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s: %s", ErrBlocked, url, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s: %s", ErrRequestFailed, url, resp.Status)
	}
	return body, nil
}

// FetchDocument GETs url and parses it as HTML.
func FetchDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	body, err := FetchBytes(ctx, client, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
