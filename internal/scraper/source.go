package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/browser"
	"github.com/drewfead/marquee/internal/httputil"
	"github.com/drewfead/marquee/internal/showtimes"
	"github.com/go-rod/rod"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrUnexpectedShape means a page no longer looks the way the adapter expects.
	ErrUnexpectedShape = errors.New("unexpected page shape")
	// ErrUnknownLocation means the theater is routed to an adapter that has no id for it.
	ErrUnknownLocation = errors.New("unknown location")
)

// Zones the theaters print their times in.
var (
	portlandTZ = loadZone("America/Los_Angeles")
	easternTZ  = loadZone("America/New_York")
)

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// source is the transport every adapter shares: where the site lives and how to
// reach it.
type source struct {
	baseURL         string
	httpClient      *http.Client
	headlessBrowser browser.Interface
	clock           clockwork.Clock
}

// Option configures an adapter's transport.
type Option func(*source)

// WithBaseURL sets the base URL for the adapter (e.g. httptest.Server.URL in tests).
func WithBaseURL(baseURL string) Option {
	return func(s *source) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithClient sets the HTTP client (e.g. httptest.Server.Client() in tests).
// It replaces a previously injected browser.
func WithClient(client *http.Client) Option {
	return func(s *source) {
		if client != nil {
			s.httpClient = client
			s.headlessBrowser = nil
		}
	}
}

// WithBrowser routes the adapter through a headless browser for sites that
// refuse plain HTTP clients. It replaces a previously injected client.
func WithBrowser(b browser.Interface) Option {
	return func(s *source) {
		if b != nil {
			s.headlessBrowser = b
			s.httpClient = nil
		}
	}
}

// WithClock sets the clock used for "today" (fake clocks in tests).
func WithClock(clock clockwork.Clock) Option {
	return func(s *source) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func newSource(defaultBaseURL string, opts []Option) source {
	s := source{
		baseURL: defaultBaseURL,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.httpClient == nil && s.headlessBrowser == nil {
		s.httpClient = httputil.NewClient()
	}
	return s
}

func (s *source) endpoint(path string, query url.Values) string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return s.baseURL + path
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (s *source) page(ctx context.Context, pageURL string) ([]byte, error) {
	if s.headlessBrowser != nil {
		html, err := s.headlessBrowser.HTML(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		return []byte(html), nil
	}
	return httputil.FetchBytes(ctx, s.httpClient, pageURL)
}

func (s *source) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if s.headlessBrowser == nil {
		return httputil.FetchDocument(ctx, s.httpClient, pageURL)
	}
	body, err := s.page(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parseDocument(body)
}

// fetchJSON fetches apiURL. Through a browser the request is made from a page opened
// at the site's home, so it carries the cookies a bot wall hands out.
func (s *source) fetchJSON(ctx context.Context, apiURL string) ([]byte, error) {
	if s.headlessBrowser == nil {
		return httputil.FetchBytes(ctx, s.httpClient, apiURL)
	}
	var raw json.RawMessage
	err := s.headlessBrowser.WithPage(ctx, s.baseURL+"/", func(page *rod.Page) error {
		return s.headlessBrowser.FetchJSON(ctx, apiURL, &raw)(page)
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// requestDay parses the request's YYYY-MM-DD date.
func requestDay(req internal.ShowingsRequest) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("request date %q: %w", req.Date, err)
	}
	return day, nil
}

// nodeText is the trimmed text of sel with non-breaking and narrow spaces
// flattened, which several sites put between a time and its meridiem.
func nodeText(sel *goquery.Selection) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u202f', '\u2009':
			return ' '
		}
		return r
	}, sel.Text()))
}

// timeLabels cleans raw time strings and drops the ones that are not times
// ("Sold Out", "Tickets").
func timeLabels(descriptor string, raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		label := showtimes.CleanTimeLabel(r)
		if _, _, err := showtimes.ParseTimeOfDay(label); err != nil {
			slog.Debug("skipping non-time label", "source", descriptor, "label", r)
			continue
		}
		out = append(out, label)
	}
	return out
}

// zipShowings checks that a page yielded as many time lists as names before
// pairing them.
func zipShowings(descriptor string, names []string, times [][]string) ([]internal.Showing, error) {
	if len(names) != len(times) {
		return nil, fmt.Errorf("%w: %s: %d names, %d time lists", ErrUnexpectedShape, descriptor, len(names), len(times))
	}
	return internal.ZipShowings(names, times), nil
}
