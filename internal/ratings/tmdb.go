package ratings

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/httputil"
	"github.com/hbollon/go-edlib"
)

// minTitleSimilarity is the Jaro-Winkler score a search result needs before its
// vote average is trusted as this movie's.
const minTitleSimilarity = 0.85

type tmdbProvider struct {
	client *tmdb.Client
}

// TMDBOption applies configuration to a TMDB provider.
type TMDBOption func(*tmdbConfig)

type tmdbConfig struct {
	transport http.RoundTripper
}

// TMDBWithTransport sets the transport under the response cache (tests point it
// at an httptest server).
func TMDBWithTransport(rt http.RoundTripper) TMDBOption {
	return func(c *tmdbConfig) {
		c.transport = rt
	}
}

// TMDB adds a "The Movie Database" score (vote average over ten) for the best
// matching search result. It authenticates with a v4 read access token.
func TMDB(token string, opts ...TMDBOption) (internal.RatingProvider, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingKey
	}
	cfg := &tmdbConfig{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := tmdb.InitV4(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	client.SetClientConfig(http.Client{
		Transport: &httputil.CacheTransport{
			Base: cfg.transport,
			OnCacheHit: func(cacheKey string, hit bool) {
				slog.Debug("tmdb: request", "key", cacheKey, "cache_hit", hit)
			},
		},
	})
	return &tmdbProvider{client: client}, nil
}

// titleEqual compares titles ignoring case and runs of whitespace.
func titleEqual(a, b string) bool {
	return normalizeTitle(a) == normalizeTitle(b)
}

func normalizeTitle(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// pickBestResult prefers an exact title match, then the closest Jaro-Winkler
// match above minTitleSimilarity. Results arrive in TMDB's relevance order, so
// ties keep the earlier one.
func pickBestResult(results []tmdb.MovieResult, name string) *tmdb.MovieResult {
	for i := range results {
		if titleEqual(results[i].Title, name) {
			return &results[i]
		}
	}
	want := normalizeTitle(name)
	var best *tmdb.MovieResult
	var bestScore float32
	for i := range results {
		score := edlib.JaroWinklerSimilarity(want, normalizeTitle(results[i].Title))
		if score >= minTitleSimilarity && score > bestScore {
			best, bestScore = &results[i], score
		}
	}
	return best
}

func (p *tmdbProvider) Ratings(_ context.Context, name string) (internal.RatingRecord, error) {
	search, err := p.client.GetSearchMovies(name, map[string]string{
		"language": "en-US",
	})
	if err != nil {
		return nil, fmt.Errorf("tmdb: search %q: %w", name, err)
	}
	if search == nil {
		return internal.RatingRecord{}, nil
	}
	best := pickBestResult(search.Results, name)
	if best == nil || best.VoteAverage <= 0 {
		slog.Debug("tmdb: no match", "name", name, "results", len(search.Results))
		return internal.RatingRecord{}, nil
	}
	return internal.RatingRecord{TheMovieDatabase: float64(best.VoteAverage) / 10}, nil
}
