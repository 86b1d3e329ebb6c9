package showtimes

import (
	"cmp"
	"slices"

	"github.com/drewfead/marquee/internal"
)

// NormalizeThreshold reads thresholds above 1 as percentages.
func NormalizeThreshold(threshold float64) float64 {
	if threshold > 1 {
		return threshold / 100
	}
	return threshold
}

// FilterByRating keeps entries rated at or above threshold, plus entries with no
// known rating. A threshold at or below zero keeps everything.
func FilterByRating(entries []internal.Entry, threshold float64) []internal.Entry {
	threshold = NormalizeThreshold(threshold)
	if threshold <= 0 {
		return entries
	}
	out := make([]internal.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Rating >= threshold || !e.Known() {
			out = append(out, e)
		}
	}
	return out
}

// SortByRating orders entries best first. Ties keep their scraped order and
// unknown ratings sink to the bottom.
func SortByRating(entries []internal.Entry) {
	slices.SortStableFunc(entries, func(a, b internal.Entry) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
}
