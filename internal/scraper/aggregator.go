package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/marquee/internal"
	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
)

const defaultAggregatorBaseURL = "https://www.fandango.com"

// theaterMatchThreshold is the minimum Jaro-Winkler similarity for a search
// result to count as the theater asked for.
const theaterMatchThreshold = 0.85

type aggregatorScraper struct {
	source
	fold cases.Caser
}

// Aggregator finds the theater on a ticketing aggregator's theater search and
// reads its page, where each day is a tab and the first tab is today.
func Aggregator(opts ...Option) internal.Scraper {
	return &aggregatorScraper{
		source: newSource(defaultAggregatorBaseURL, opts),
		fold:   cases.Fold(),
	}
}

func (s *aggregatorScraper) Descriptor() string {
	return "aggregator"
}

func (s *aggregatorScraper) searchURL(theater string) string {
	return s.endpoint("/theaters/search", url.Values{"q": {theater}})
}

func (s *aggregatorScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	day, err := requestDay(req)
	if err != nil {
		return internal.ScrapeResult{}, err
	}
	results, err := s.document(ctx, s.searchURL(req.Theater))
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("aggregator search: %w", err)
	}
	href, ok := s.matchTheater(results, req.Theater)
	if !ok {
		slog.Debug("aggregator: no theater matched", "theater", req.Theater)
		return internal.NoMatch(), nil
	}

	page, err := s.document(ctx, s.resolve(href))
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("aggregator theater page: %w", err)
	}
	tabs := page.Find("div.showtimes-day")
	index := s.dayIndex(day)
	if index < 0 || index >= tabs.Length() {
		slog.Debug("aggregator: day outside listed range", "theater", req.Theater, "index", index, "days", tabs.Length())
		return internal.NotFound(), nil
	}
	return internal.Found(s.parseDay(tabs.Eq(index))), nil
}

// matchTheater returns the link of the search result closest to theater.
func (s *aggregatorScraper) matchTheater(doc *goquery.Document, theater string) (string, bool) {
	want := s.fold.String(strings.TrimSpace(theater))
	var (
		best      string
		bestScore float32
	)
	doc.Find("a.theater-link").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		score := edlib.JaroWinklerSimilarity(want, s.fold.String(nodeText(a)))
		if score > bestScore {
			best, bestScore = href, score
		}
	})
	if bestScore < theaterMatchThreshold {
		return "", false
	}
	return best, true
}

func (s *aggregatorScraper) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// dayIndex is the number of days from today to day.
func (s *aggregatorScraper) dayIndex(day time.Time) int {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	target := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return int(target.Sub(today).Hours() / 24)
}

func (s *aggregatorScraper) parseDay(tab *goquery.Selection) []internal.Showing {
	var out []internal.Showing
	tab.Find("div.movie").Each(func(_ int, movie *goquery.Selection) {
		var raw []string
		movie.Find("a.time").Each(func(_ int, t *goquery.Selection) {
			raw = append(raw, nodeText(t))
		})
		out = append(out, internal.Showing{
			Name:  nodeText(movie.Find("h3.movie-title").First()),
			Times: timeLabels(s.Descriptor(), raw),
		})
	})
	return out
}

func (s *aggregatorScraper) PullGolden(ctx context.Context, goldenDir string) error {
	const theater = "Quad Cinema"
	search, err := s.page(ctx, s.searchURL(theater))
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	doc, err := parseDocument(search)
	if err != nil {
		return err
	}
	href, ok := s.matchTheater(doc, theater)
	if !ok {
		return fmt.Errorf("failed to fetch golden data: %w: %s", ErrUnexpectedShape, theater)
	}
	page, err := s.page(ctx, s.resolve(href))
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenPages(goldenDir, map[string][]byte{"search": search, "theater": page})
}

func (s *aggregatorScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	pages, err := readGoldenPages(goldenDir, "search", "theater")
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/theaters/search":
			serveGoldenPage(w, pages, "search")
		case strings.HasPrefix(r.URL.Path, "/theater/"):
			serveGoldenPage(w, pages, "theater")
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
		}
	}), nil
}
