package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/drewfead/marquee/internal"
)

const defaultCinema21BaseURL = "https://www.cinema21.com"

type cinema21Scraper struct {
	source
}

// Cinema21 reads the playing-now API, which lists every film with all of its
// upcoming sessions.
func Cinema21(opts ...Option) internal.Scraper {
	return &cinema21Scraper{source: newSource(defaultCinema21BaseURL, opts)}
}

func (s *cinema21Scraper) Descriptor() string {
	return "cinema-21"
}

func (s *cinema21Scraper) playingNowURL() string {
	return s.endpoint("/api/movie/playing-now", nil)
}

func (s *cinema21Scraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	data, err := s.fetchJSON(ctx, s.playingNowURL())
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("failed to fetch playing-now: %w", err)
	}
	var movies []cinema21Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("failed to unmarshal playing-now: %w", err)
	}
	return internal.Found(sessionsOn(movies, req.Date)).In(portlandTZ), nil
}

// sessionsOn keeps each film's sessions on date that still have seats.
func sessionsOn(movies []cinema21Movie, date string) []internal.Showing {
	var out []internal.Showing
	var soldOut int
	for _, movie := range movies {
		var times []string
		for _, session := range movie.SessionTimes {
			if session.Date != date {
				continue
			}
			if session.IsSoldOut {
				soldOut++
				continue
			}
			times = append(times, strings.ToLower(strings.TrimSpace(session.Time)))
		}
		if len(times) == 0 {
			continue
		}
		out = append(out, internal.Showing{Name: strings.TrimSpace(movie.Title), Times: times})
	}
	slog.Debug("cinema21: sessions", "date", date, "showings", len(out), "sold_out", soldOut)
	return out
}

// PullGolden fetches playing-now and saves it as golden data.
func (s *cinema21Scraper) PullGolden(ctx context.Context, goldenDir string) error {
	data, err := s.fetchJSON(ctx, s.playingNowURL())
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenFiles(goldenDir, map[string][]byte{
		"playing-now": data,
	})
}

func (s *cinema21Scraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	playingNow, err := os.ReadFile(filepath.Join(goldenDir, "playing-now.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read playing-now golden file: %w", err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/movie/playing-now" && r.Method == http.MethodGet {
			_, _ = w.Write(playingNow)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}), nil
}

// cinema21Movie represents a movie from the /api/movie/playing-now response.
type cinema21Movie struct {
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	Duration     string            `json:"duration"`
	SessionTimes []cinema21Session `json:"sessionTimes"`
}

// cinema21Session represents a single showtime session.
type cinema21Session struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	BookingLink string `json:"bookingLink"`
	IsSoldOut   bool   `json:"isSoldOut"`
	ID          string `json:"_id"`
}
