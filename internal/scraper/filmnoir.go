package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/marquee/internal"
)

const defaultFilmNoirBaseURL = "https://www.filmnoircinema.com"

type filmNoirScraper struct {
	source
}

// FilmNoir reads the single /program page, which lists every upcoming event;
// events are picked out by the /program/Y/M/D/ prefix of their links.
func FilmNoir(opts ...Option) internal.Scraper {
	return &filmNoirScraper{source: newSource(defaultFilmNoirBaseURL, opts)}
}

func (s *filmNoirScraper) Descriptor() string {
	return "film-noir"
}

// programPrefix is the link prefix for events on day. The site does not zero-pad.
func programPrefix(day time.Time) string {
	return fmt.Sprintf("/program/%d/%d/%d/", day.Year(), int(day.Month()), day.Day())
}

func (s *filmNoirScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	day, err := requestDay(req)
	if err != nil {
		return internal.ScrapeResult{}, err
	}
	doc, err := s.document(ctx, s.endpoint("/program", nil))
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("film noir: %w", err)
	}
	return internal.Found(s.parse(doc, day)).In(easternTZ), nil
}

func (s *filmNoirScraper) parse(doc *goquery.Document, day time.Time) []internal.Showing {
	prefix := programPrefix(day)
	want := day.Format(time.DateOnly)
	var out []internal.Showing
	doc.Find("a.eventlist-title-link").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.Contains(href, prefix) {
			return
		}
		event := link.Closest(".eventlist-event")
		if event.Length() == 0 {
			event = link.Parent().Parent()
		}
		var raw []string
		event.Find("time.event-time-12hr-start").Each(func(_ int, t *goquery.Selection) {
			if dt, ok := t.Attr("datetime"); ok && dt != want {
				return
			}
			raw = append(raw, nodeText(t))
		})
		out = append(out, internal.Showing{Name: nodeText(link), Times: timeLabels(s.Descriptor(), raw)})
	})
	return out
}

func (s *filmNoirScraper) PullGolden(ctx context.Context, goldenDir string) error {
	body, err := s.page(ctx, s.endpoint("/program", nil))
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenPages(goldenDir, map[string][]byte{"program": body})
}

func (s *filmNoirScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	pages, err := readGoldenPages(goldenDir, "program")
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/program" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
			return
		}
		serveGoldenPage(w, pages, "program")
	}), nil
}
