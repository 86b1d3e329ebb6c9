package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/showtimes"
)

const defaultVideologyBaseURL = "https://videologybarandcinema.com"

type videologyScraper struct {
	source
}

// Videology reads the events calendar, one page per day at /events/{date}.
// Each event carries a "May 1 @ 7:00 pm" caption.
func Videology(opts ...Option) internal.Scraper {
	return &videologyScraper{source: newSource(defaultVideologyBaseURL, opts)}
}

func (s *videologyScraper) Descriptor() string {
	return "videology"
}

func (s *videologyScraper) eventsURL(date string) string {
	return s.endpoint("/events/"+date, nil)
}

func (s *videologyScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	day, err := requestDay(req)
	if err != nil {
		return internal.ScrapeResult{}, err
	}
	doc, err := s.document(ctx, s.eventsURL(req.Date))
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("videology: %w", err)
	}
	showings, err := s.parse(doc, day)
	if err != nil {
		return internal.ScrapeResult{}, err
	}
	return internal.Found(showings).In(easternTZ), nil
}

func (s *videologyScraper) parse(doc *goquery.Document, day time.Time) ([]internal.Showing, error) {
	var names []string
	doc.Find("h2.tribe-events-list-event-title").Each(func(_ int, h *goquery.Selection) {
		a := h.Find("a").First()
		name, ok := a.Attr("title")
		if !ok {
			name = nodeText(a)
		}
		names = append(names, strings.TrimSpace(name))
	})

	want := day.Format(time.DateOnly)
	var times [][]string
	doc.Find("div.tribe-updated.published.time-details").Each(func(_ int, div *goquery.Selection) {
		caption := nodeText(div.Find("span").First())
		datePart, timePart, ok := strings.Cut(caption, showtimes.TokenSeparator)
		if !ok {
			times = append(times, []string{})
			return
		}
		// Multi-day listings repeat on every day page; keep only the requested day.
		if got, err := showtimes.NormalizeDate(datePart, day); err != nil || got != want {
			slog.Debug("videology: event on another day", "caption", caption)
			times = append(times, []string{})
			return
		}
		times = append(times, timeLabels(s.Descriptor(), []string{timePart}))
	})
	return zipShowings(s.Descriptor(), names, times)
}

func (s *videologyScraper) PullGolden(ctx context.Context, goldenDir string) error {
	body, err := s.page(ctx, s.eventsURL(time.Now().Format(time.DateOnly)))
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenPages(goldenDir, map[string][]byte{"events": body})
}

func (s *videologyScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	pages, err := readGoldenPages(goldenDir, "events")
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/events/") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
			return
		}
		serveGoldenPage(w, pages, "events")
	}), nil
}
