package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/marquee/internal"
)

const defaultMetrographBaseURL = "https://metrograph.com"

type metrographScraper struct {
	source
}

// Metrograph reads the day view of metrograph.com/film, which takes the date as
// the d query parameter.
func Metrograph(opts ...Option) internal.Scraper {
	return &metrographScraper{source: newSource(defaultMetrographBaseURL, opts)}
}

func (s *metrographScraper) Descriptor() string {
	return "metrograph"
}

func (s *metrographScraper) filmURL(date string) string {
	return s.endpoint("/film", url.Values{"d": {date}})
}

func (s *metrographScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	doc, err := s.document(ctx, s.filmURL(req.Date))
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("metrograph: %w", err)
	}
	showings, err := s.parse(doc)
	if err != nil {
		return internal.ScrapeResult{}, err
	}
	return internal.Found(showings).In(easternTZ), nil
}

func (s *metrographScraper) parse(doc *goquery.Document) ([]internal.Showing, error) {
	var names []string
	doc.Find("h4.title").Each(func(_ int, title *goquery.Selection) {
		names = append(names, nodeText(title.Find("a").First()))
	})
	var times [][]string
	doc.Find("div.showtimes").Each(func(_ int, list *goquery.Selection) {
		var raw []string
		list.Find("a").Each(func(_ int, a *goquery.Selection) {
			raw = append(raw, nodeText(a))
		})
		times = append(times, timeLabels(s.Descriptor(), raw))
	})
	return zipShowings(s.Descriptor(), names, times)
}

func (s *metrographScraper) PullGolden(ctx context.Context, goldenDir string) error {
	body, err := s.page(ctx, s.filmURL(time.Now().Format(time.DateOnly)))
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenPages(goldenDir, map[string][]byte{"film": body})
}

func (s *metrographScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	pages, err := readGoldenPages(goldenDir, "film")
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/film" || r.URL.Query().Get("d") == "" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
			return
		}
		serveGoldenPage(w, pages, "film")
	}), nil
}
