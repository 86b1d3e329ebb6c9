package scraper

import (
	"context"
	"log/slog"

	"github.com/drewfead/marquee/internal"
)

type noneScraper struct{}

func (s *noneScraper) Descriptor() string {
	return "none"
}

func (s *noneScraper) FetchShowings(_ context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	slog.Debug("fetch-showings", "descriptor", s.Descriptor(), "theater", req.Theater, "date", req.Date)
	return internal.NotFound(), nil
}

// None never finds anything. It ends a registry that has no fallbacks.
func None() internal.Scraper {
	return &noneScraper{}
}
