package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/showtimes"
)

const defaultPghFilmmakersBaseURL = "http://cinema.pfpca.org"

// pghLocations maps the screens Pittsburgh Filmmakers programs to their showtimes location ids.
var pghLocations = map[string]string{
	"regent square theater":  "24",
	"harris theater":         "20",
	"melwood screening room": "18",
}

// PghFilmmakersTheaters lists the theater names the adapter serves.
func PghFilmmakersTheaters() []string {
	names := make([]string, 0, len(pghLocations))
	for name := range pghLocations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// captionLayout is how a day's table caption reads, e.g. "Wed, May 01".
const captionLayout = "Mon, Jan 02"

type pghFilmmakersScraper struct {
	source
}

// PghFilmmakers reads the per-location showtimes page, which holds one table per
// day captioned with the date and one row per screening.
func PghFilmmakers(opts ...Option) internal.Scraper {
	return &pghFilmmakersScraper{source: newSource(defaultPghFilmmakersBaseURL, opts)}
}

func (s *pghFilmmakersScraper) Descriptor() string {
	return "pgh-filmmakers"
}

func (s *pghFilmmakersScraper) showtimesURL(location string) string {
	return s.endpoint("/films/showtimes", url.Values{"location": {location}})
}

func (s *pghFilmmakersScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	location, ok := pghLocations[normalizeTheater(req.Theater)]
	if !ok {
		return internal.ScrapeResult{}, fmt.Errorf("%w: %s", ErrUnknownLocation, req.Theater)
	}
	caption, err := showtimes.FormatDate(req.Date, captionLayout, s.clock.Now())
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("request date %q: %w", req.Date, err)
	}
	doc, err := s.document(ctx, s.showtimesURL(location))
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("pgh filmmakers: %w", err)
	}
	return internal.Found(s.parse(doc, caption)).In(easternTZ), nil
}

func (s *pghFilmmakersScraper) parse(doc *goquery.Document, want string) []internal.Showing {
	block := doc.Find("caption").FilterFunction(func(_ int, c *goquery.Selection) bool {
		return nodeText(c) == want
	}).First()
	if block.Length() == 0 {
		return nil
	}

	var out []internal.Showing
	block.Closest("table").Find("tr").Each(func(_ int, row *goquery.Selection) {
		name := nodeText(row.Find("a[href*='/films/']").First())
		if name == "" {
			return
		}
		raw := nodeText(row.Find("td.views-field-field-location").First().Next())
		// One row per screening; adjacent rows for the same film are merged downstream.
		out = append(out, internal.Showing{Name: name, Times: timeLabels(s.Descriptor(), []string{raw})})
	})
	return out
}

func (s *pghFilmmakersScraper) PullGolden(ctx context.Context, goldenDir string) error {
	pages := make(map[string][]byte, len(pghLocations))
	for _, location := range pghLocations {
		body, err := s.page(ctx, s.showtimesURL(location))
		if err != nil {
			return fmt.Errorf("failed to fetch golden data for location %s: %w", location, err)
		}
		pages["location-"+location] = body
	}
	return writeGoldenPages(goldenDir, pages)
}

func (s *pghFilmmakersScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	keys := make([]string, 0, len(pghLocations))
	for _, location := range pghLocations {
		keys = append(keys, "location-"+location)
	}
	pages, err := readGoldenPages(goldenDir, keys...)
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		if r.URL.Path != "/films/showtimes" || location == "" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
			return
		}
		serveGoldenPage(w, pages, "location-"+location)
	}), nil
}
