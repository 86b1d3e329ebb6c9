package internal

import (
	"context"
	"net/http"
)

type Scraper interface {
	// Descriptor names the source (e.g. for cache keys and logging).
	Descriptor() string
	FetchShowings(ctx context.Context, req ShowingsRequest) (ScrapeResult, error)
}

// GoldenScraper extends Scraper with the ability to pull and write golden test data.
type GoldenScraper interface {
	Scraper
	PullGolden(ctx context.Context, goldenDir string) error
	MountGolden(ctx context.Context, goldenDir string) (http.Handler, error)
}
