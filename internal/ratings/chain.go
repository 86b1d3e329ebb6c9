package ratings

import (
	"context"
	"log/slog"
	"maps"

	"github.com/drewfead/marquee/internal"
)

type chain struct {
	primary internal.RatingProvider
	extras  []internal.RatingProvider
}

// Chain consults primary, then each extra on a best-effort basis. Primary errors
// are returned; extra errors are logged and skipped. Earlier providers win when
// two report the same source.
func Chain(primary internal.RatingProvider, extras ...internal.RatingProvider) internal.RatingProvider {
	if len(extras) == 0 {
		return primary
	}
	return &chain{primary: primary, extras: extras}
}

func (c *chain) Ratings(ctx context.Context, name string) (internal.RatingRecord, error) {
	record, err := c.primary.Ratings(ctx, name)
	if err != nil {
		return nil, err
	}
	merged := internal.RatingRecord{}
	maps.Copy(merged, record)
	for i, extra := range c.extras {
		more, err := extra.Ratings(ctx, name)
		if err != nil {
			slog.Warn("ratings: extra provider failed", "provider_index", i, "name", name, "error", err)
			continue
		}
		for source, score := range more {
			if _, ok := merged[source]; !ok {
				merged[source] = score
			}
		}
	}
	return merged, nil
}
