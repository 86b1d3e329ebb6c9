package internal

import "context"

// RatingRecord maps a rating source name (e.g. "Rotten Tomatoes") to a score in [0,1].
type RatingRecord map[string]float64

type RatingProvider interface {
	// Ratings looks up critic scores for a movie title. A title the provider
	// doesn't know yields an empty record, not an error.
	Ratings(ctx context.Context, name string) (RatingRecord, error)
}
