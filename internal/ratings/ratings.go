package ratings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/drewfead/marquee/internal"
	"golang.org/x/text/cases"
)

// Rating source names as OMDb reports them.
const (
	RottenTomatoes   = "Rotten Tomatoes"
	IMDb             = "Internet Movie Database"
	Metacritic       = "Metacritic"
	TheMovieDatabase = "The Movie Database"
)

// Preference is the order sources are consulted when collapsing a record to one score.
var Preference = []string{RottenTomatoes, IMDb, TheMovieDatabase}

const Unknown = internal.UnknownRating

var (
	ErrUnauthorized = errors.New("rating source rejected credentials")
	ErrMissingKey   = errors.New("rating source api key not configured")
	ErrBadScore     = errors.New("unparseable score")
)

// ParseScore reads "85%" as 0.85 and "7/10" or "76/100" as a fraction.
func ParseScore(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "%", "/100")
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadScore, raw)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadScore, raw)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || b == 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadScore, raw)
	}
	return a / b, nil
}

// Resolve collapses a record to the score of the first preferred source it
// has, or Unknown.
func Resolve(record internal.RatingRecord) float64 {
	for _, source := range Preference {
		if score, ok := record[source]; ok {
			return score
		}
	}
	return Unknown
}

// Cache holds one record per movie for the length of a run. The caller owns it
// and threads it through GetRatings.
type Cache map[string]internal.RatingRecord

var folder = cases.Fold()

// CacheKey case-folds a movie name so "VERTIGO" and "Vertigo" share a lookup.
func CacheKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// GetRatings resolves a score per name, looking each distinct name up at most
// once per cache. The cache is updated in place and returned. A provider error
// stops the batch and is returned with the cache as filled so far.
func GetRatings(ctx context.Context, provider internal.RatingProvider, names []string, cache Cache) ([]float64, Cache, error) {
	if cache == nil {
		cache = Cache{}
	}
	scores := make([]float64, len(names))
	for i, name := range names {
		key := CacheKey(name)
		record, ok := cache[key]
		if !ok {
			var err error
			record, err = provider.Ratings(ctx, name)
			if err != nil {
				return nil, cache, fmt.Errorf("ratings for %q: %w", name, err)
			}
			if record == nil {
				record = internal.RatingRecord{}
			}
			cache[key] = record
		}
		scores[i] = Resolve(record)
	}
	return scores, cache, nil
}
