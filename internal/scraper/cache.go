package scraper

import (
	"context"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached returns middleware that wraps a Scraper with LRU+TTL caching of its
// results per (theater, date). Apply it at registration:
//
//	scraper.NewRegistry(scraper.WithTheater("metrograph", scraper.Metrograph(), scraper.Cached(64, 5*time.Minute)))
//
// maxEntries is the LRU size; ttl is how long entries stay valid (zero = no expiration).
// Errors are not cached.
func Cached(maxEntries int, ttl time.Duration) ScraperMiddleware {
	return func(inner internal.Scraper) internal.Scraper {
		if inner == nil {
			return nil
		}
		return newCachingScraper(inner, maxEntries, ttl)
	}
}

func newCachingScraper(inner internal.Scraper, maxEntries int, ttl time.Duration) internal.Scraper {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &cachingScraper{
		descriptor: inner.Descriptor(),
		inner:      inner,
		cache:      expirable.NewLRU[string, internal.ScrapeResult](maxEntries, nil, ttl),
	}
}

type cachingScraper struct {
	descriptor string
	inner      internal.Scraper
	cache      *expirable.LRU[string, internal.ScrapeResult]
}

func cacheKey(descriptor string, req internal.ShowingsRequest) string {
	return descriptor + "|" + normalizeTheater(req.Theater) + "|" + req.Date
}

func (c *cachingScraper) Descriptor() string {
	return c.descriptor
}

func (c *cachingScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	key := cacheKey(c.descriptor, req)
	if result, ok := c.cache.Get(key); ok {
		return copyResult(result), nil
	}
	result, err := c.inner.FetchShowings(ctx, req)
	if err != nil {
		return result, err
	}
	c.cache.Add(key, copyResult(result))
	return result, nil
}

// copyResult detaches the cached showings from whatever the caller does next.
func copyResult(r internal.ScrapeResult) internal.ScrapeResult {
	out := internal.ScrapeResult{Outcome: r.Outcome, Showings: make([]internal.Showing, len(r.Showings)), Location: r.Location}
	for i, s := range r.Showings {
		out.Showings[i] = internal.Showing{
			Name:  s.Name,
			Times: append([]string(nil), s.Times...),
			Tags:  append([]string(nil), s.Tags...),
		}
	}
	return out
}
