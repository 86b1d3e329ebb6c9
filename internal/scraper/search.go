package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/showtimes"
)

const defaultSearchBaseURL = "https://www.google.com"

// Class names of the search engine's showtimes card.
const (
	searchMovieSelector    = "div.JLxn7"
	searchDateSelector     = "div.r0jJne.AyRB2d"
	searchTimelistSelector = "div.e3wEkd"
	searchTimeSelector     = "div.ovxuVd"
)

// standardFormat is the format label that is not worth tagging.
const standardFormat = "Standard"

var formatLabelRE = regexp.MustCompile(`^.*\((.*)\)`)

type searchScraper struct {
	source
}

// Search asks a search engine for "showtimes at <theater> <Weekday>" and reads
// the showtimes card on the results page. It serves any theater, so it sits in
// the fallback chain.
func Search(opts ...Option) internal.Scraper {
	return &searchScraper{source: newSource(defaultSearchBaseURL, opts)}
}

func (s *searchScraper) Descriptor() string {
	return "search"
}

// weekdayLayout renders a date as its weekday name, the way the query asks for it.
const weekdayLayout = "Monday"

func searchQuery(theater, weekday string) string {
	return strings.Join([]string{"showtimes at", theater, weekday}, " ")
}

func (s *searchScraper) searchURL(query string) string {
	return s.endpoint("/search", url.Values{"q": {query}})
}

func (s *searchScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	now := s.clock.Now()
	weekday, err := showtimes.FormatDate(req.Date, weekdayLayout, now)
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("request date %q: %w", req.Date, err)
	}
	doc, err := s.document(ctx, s.searchURL(searchQuery(req.Theater, weekday)))
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("search: %w", err)
	}

	caption := nodeText(doc.Find(searchDateSelector).First().Find("span").First())
	if caption == "" {
		slog.Debug("search: no showtimes card", "theater", req.Theater)
		return internal.NoMatch(), nil
	}
	// Captions are relative to the real day ("Today", "Tomorrow"), not the requested one.
	if got, err := showtimes.NormalizeDate(caption, now); err != nil || got != req.Date {
		slog.Debug("search: showtimes card is for another day", "theater", req.Theater, "caption", caption, "want", req.Date)
		return internal.NoMatch(), nil
	}

	showings := s.parse(doc)
	if len(showings) == 0 {
		return internal.NoMatch(), nil
	}
	return internal.Found(showings), nil
}

// parse walks movie headers and time lists in document order. A movie shown in
// several formats has one time list per format, each preceded by a label like
// "English (IMAX)"; every list becomes its own showing and non-standard formats
// are tagged. A list right after the movie header has no label.
func (s *searchScraper) parse(doc *goquery.Document) []internal.Showing {
	var (
		out     []internal.Showing
		current string
	)
	doc.Find(searchMovieSelector + ", " + searchTimelistSelector).Each(func(_ int, node *goquery.Selection) {
		if node.Is(searchMovieSelector) {
			current = nodeText(node.Find("a").First())
			return
		}
		if current == "" {
			return
		}
		var raw []string
		node.Find(searchTimeSelector).Each(func(_ int, t *goquery.Selection) {
			raw = append(raw, nodeText(t))
		})
		showing := internal.Showing{Name: current, Times: timeLabels(s.Descriptor(), raw)}
		if format := timelistFormat(node); format != "" && format != standardFormat {
			showing.Tags = []string{format}
		}
		out = append(out, showing)
	})
	return out
}

func timelistFormat(timelist *goquery.Selection) string {
	prev := timelist.Prev()
	if prev.Is(searchMovieSelector) || prev.Is(searchTimelistSelector) {
		return ""
	}
	label := nodeText(prev)
	if label == "" {
		return ""
	}
	if m := formatLabelRE.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[1])
	}
	return label
}

func (s *searchScraper) PullGolden(ctx context.Context, goldenDir string) error {
	weekday, err := showtimes.FormatDate("today", weekdayLayout, s.clock.Now())
	if err != nil {
		return err
	}
	body, err := s.page(ctx, s.searchURL(searchQuery("Film Forum", weekday)))
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenPages(goldenDir, map[string][]byte{"search": body})
}

// MountGolden serves the golden results page for queries about theaters named in
// it and an empty results page for everything else.
func (s *searchScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	pages, err := readGoldenPages(goldenDir, "search", "empty")
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
			return
		}
		q := strings.ToLower(r.URL.Query().Get("q"))
		if strings.Contains(q, "film forum") {
			serveGoldenPage(w, pages, "search")
			return
		}
		serveGoldenPage(w, pages, "empty")
	}), nil
}
