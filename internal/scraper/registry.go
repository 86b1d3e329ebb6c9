package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/drewfead/marquee/internal"
)

// Registry maps lower-cased theater names to the adapter that knows their site,
// plus an ordered chain of generic adapters tried for everything else.
type Registry interface {
	GetScraper(theater string) (internal.Scraper, error)
	Fallbacks() []internal.Scraper
}

type ScraperMiddleware func(internal.Scraper) internal.Scraper

type RegistryOption func(r *registry)

func NewRegistry(opts ...RegistryOption) Registry {
	r := &registry{
		scrapers: make(map[string]internal.Scraper),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func applyMiddleware(scraper internal.Scraper, middleware []ScraperMiddleware) internal.Scraper {
	for _, m := range middleware {
		scraper = m(scraper)
	}
	return scraper
}

func WithTheater(theater string, scraper internal.Scraper, middleware ...ScraperMiddleware) RegistryOption {
	return WithTheaters([]string{theater}, scraper, middleware...)
}

// WithTheaters registers one adapter under several theater names. Middleware is
// applied once, so a cache wrapped here is shared by all of them.
func WithTheaters(theaters []string, scraper internal.Scraper, middleware ...ScraperMiddleware) RegistryOption {
	return func(r *registry) {
		scraper := applyMiddleware(scraper, middleware)
		for _, theater := range theaters {
			r.scrapers[normalizeTheater(theater)] = scraper
		}
	}
}

// WithFallback appends an adapter to the fallback chain. Order of calls is the
// order of the chain.
func WithFallback(scraper internal.Scraper, middleware ...ScraperMiddleware) RegistryOption {
	return func(r *registry) {
		r.fallbacks = append(r.fallbacks, applyMiddleware(scraper, middleware))
	}
}

type registry struct {
	scrapers  map[string]internal.Scraper
	fallbacks []internal.Scraper
}

var ErrScraperNotFound = errors.New("scraper not found")

func normalizeTheater(theater string) string {
	return strings.ToLower(strings.TrimSpace(theater))
}

func (r *registry) GetScraper(theater string) (internal.Scraper, error) {
	scraper, ok := r.scrapers[normalizeTheater(theater)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScraperNotFound, theater)
	}
	return scraper, nil
}

func (r *registry) Fallbacks() []internal.Scraper {
	return r.fallbacks
}

// Dispatch fetches req.Theater's showings. The theater's own adapter goes first
// when one is registered, then the fallback chain; only OutcomeNoMatch moves on
// to the next adapter. Adapter errors never escape: they are logged once and the
// theater is treated as having nothing showing.
func Dispatch(ctx context.Context, r Registry, req internal.ShowingsRequest) internal.ScrapeResult {
	var chain []internal.Scraper
	if s, err := r.GetScraper(req.Theater); err == nil {
		chain = append(chain, s)
	}
	chain = append(chain, r.Fallbacks()...)
	if len(chain) == 0 {
		chain = append(chain, None())
	}

	for _, s := range chain {
		result, err := s.FetchShowings(ctx, req)
		if err != nil {
			slog.Warn("scrape failed", "theater", req.Theater, "date", req.Date, "source", s.Descriptor(), "error", err)
			return internal.NotFound()
		}
		slog.Debug("scrape", "theater", req.Theater, "source", s.Descriptor(), "outcome", result.Outcome, "showings", len(result.Showings))
		if result.Outcome != internal.OutcomeNoMatch {
			return result
		}
	}
	return internal.NotFound()
}
