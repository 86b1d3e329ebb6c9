package httputil

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

const (
	DefaultRequestsPerSecond = 2.0
	DefaultBurst             = 2
)

// RateLimitTransport paces outgoing requests per host with a token bucket, so a
// city with several screens on one site doesn't hammer it.
type RateLimitTransport struct {
	Base http.RoundTripper

	// RequestsPerSecond per host. Zero or less disables limiting.
	RequestsPerSecond float64
	Burst             int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func (t *RateLimitTransport) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limiters == nil {
		t.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := t.limiters[host]
	if !ok {
		burst := t.Burst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(t.RequestsPerSecond), burst)
		t.limiters[host] = l
	}
	return l
}

func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.RequestsPerSecond > 0 {
		if err := t.limiter(req.URL.Host).Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return base.RoundTrip(req)
}
