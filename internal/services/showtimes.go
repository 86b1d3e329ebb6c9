package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/ratings"
	"github.com/drewfead/marquee/internal/render"
	"github.com/drewfead/marquee/internal/scraper"
	"github.com/drewfead/marquee/internal/showtimes"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ShowtimeService runs one listing pass. It owns the run's rating cache, so a
// service is meant for a single invocation and is not safe for concurrent use.
type ShowtimeService interface {
	// ListTheaters renders one listing per theater, in order.
	ListTheaters(ctx context.Context, theaters []string, date string, out render.Renderer) error
	// ListMovies rates a flat list of titles and renders them as one listing.
	ListMovies(ctx context.Context, title string, names []string, out render.Renderer) error
}

type showtimeService struct {
	registry  scraper.Registry
	provider  internal.RatingProvider
	clock     clockwork.Clock
	threshold float64
	sorted    bool
	warnings  io.Writer

	cache ratings.Cache
}

type Option func(*showtimeService)

// WithRatings enables rating lookups. Without it listings are unrated.
func WithRatings(provider internal.RatingProvider) Option {
	return func(s *showtimeService) { s.provider = provider }
}

// WithClock sets the clock past showtimes are measured against.
func WithClock(clock clockwork.Clock) Option {
	return func(s *showtimeService) { s.clock = clock }
}

// WithThreshold drops movies rated below threshold (fraction or percent).
func WithThreshold(threshold float64) Option {
	return func(s *showtimeService) { s.threshold = threshold }
}

func WithSort(sorted bool) Option {
	return func(s *showtimeService) { s.sorted = sorted }
}

// WithWarnings sets where user-facing warnings go, e.g. ratings being disabled.
func WithWarnings(w io.Writer) Option {
	return func(s *showtimeService) { s.warnings = w }
}

func ShowtimesService(registry scraper.Registry, opts ...Option) ShowtimeService {
	s := &showtimeService{
		registry: registry,
		clock:    clockwork.NewRealClock(),
		warnings: io.Discard,
		cache:    ratings.Cache{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *showtimeService) ListTheaters(ctx context.Context, theaters []string, date string, out render.Renderer) error {
	for _, theater := range theaters {
		if err := ctx.Err(); err != nil {
			return err
		}
		listing := s.theaterListing(ctx, theater, date)
		if err := out.Listing(listing); err != nil {
			return fmt.Errorf("render %s: %w", theater, err)
		}
	}
	slog.Debug("list-showtimes", "theaters", len(theaters), "date", date, "rated_movies", len(s.cache))
	return nil
}

func (s *showtimeService) ListMovies(ctx context.Context, title string, names []string, out render.Renderer) error {
	showings := make([]internal.Showing, len(names))
	for i, name := range names {
		showings[i] = internal.Showing{Name: name, Times: []string{}}
	}
	if err := out.Listing(s.annotate(ctx, title, "", showings)); err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	return nil
}

func (s *showtimeService) theaterListing(ctx context.Context, theater, date string) internal.Listing {
	result := scraper.Dispatch(ctx, s.registry, internal.ShowingsRequest{Theater: theater, Date: date})

	// Labels are wall-clock times at the theater.
	cutoff := s.clock.Now()
	if result.Location != nil {
		cutoff = cutoff.In(result.Location)
	}
	upcoming, err := showtimes.FilterShowings(result.Showings, date, cutoff)
	if err != nil {
		slog.Warn("unparseable showtimes, skipping theater", "theater", theater, "date", date, "error", err)
		upcoming = nil
	}
	return s.annotate(ctx, theater, date, showtimes.CombineTimes(upcoming))
}

// annotate attaches IDs and ratings, then applies the threshold and sort when
// the run has ratings.
func (s *showtimeService) annotate(ctx context.Context, theater, date string, showings []internal.Showing) internal.Listing {
	entries := make([]internal.Entry, len(showings))
	for i, showing := range showings {
		entries[i] = internal.Entry{
			ID:      EntryID(theater, date, showing.Name),
			Showing: showing,
			Rating:  internal.UnknownRating,
		}
	}

	rated := s.rate(ctx, entries)
	if rated {
		entries = showtimes.FilterByRating(entries, s.threshold)
		if s.sorted {
			showtimes.SortByRating(entries)
		}
	}
	return internal.Listing{Theater: theater, Date: date, Entries: entries, Rated: rated}
}

// rate fills in entry ratings. A provider failure turns ratings off for the
// rest of the run and reports false.
func (s *showtimeService) rate(ctx context.Context, entries []internal.Entry) bool {
	if s.provider == nil {
		return false
	}
	if len(entries) == 0 {
		return true
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	scores, cache, err := ratings.GetRatings(ctx, s.provider, names, s.cache)
	s.cache = cache
	if err != nil {
		slog.Warn("ratings disabled for this run", "error", err)
		_, _ = fmt.Fprintf(s.warnings, "warning: ratings unavailable, continuing without them (%v)\n", err)
		s.provider = nil
		return false
	}
	for i := range entries {
		entries[i].Rating = scores[i]
	}
	return true
}

var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/drewfead/marquee"))

// EntryID is stable across runs for the same theater, date and movie.
func EntryID(theater, date, name string) string {
	return uuid.NewSHA1(entryNamespace, []byte(theater+"|"+date+"|"+name)).String()
}
