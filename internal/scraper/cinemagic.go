package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/browser"
	"github.com/drewfead/marquee/internal/httputil"
	"github.com/go-rod/rod"
)

type cinemagicScraper struct {
	source
}

// Cinemagic queries the theater's ticketing GraphQL API: datesWithShowing to
// learn which days are scheduled, then showingsForDate for the requested one.
func Cinemagic(opts ...Option) internal.Scraper {
	return &cinemagicScraper{source: newSource(defaultCinemagicBaseURL, opts)}
}

const (
	defaultCinemagicBaseURL = "https://tickets.thecinemagictheater.com"
	cinemagicSiteIDInt      = 40
	cinemagicCircuitID      = "39"
	cinemagicSiteID         = "40"
)

var (
	errGraphQLRequestFailed          = errors.New("graphql request failed")
	errUnexpectedDatesResponseFormat = errors.New("unmarshal datesWithShowing: unexpected format")
)

const cinemagicDatesQuery = `query ($siteIds: [ID]) {
  datesWithShowing(siteIds: $siteIds) {
    value
  }
}`

const cinemagicShowingsQuery = `query ($date: String, $siteIds: [ID]) {
  showingsForDate(date: $date, siteIds: $siteIds) {
    data {
      id
      time
      published
      past
      displayMetaData
      movie {
        id
        name
        duration
      }
    }
    count
  }
}`

// fetchPostJSONScript sends a POST GraphQL request from the page context with the required
// INDY Cinema Group headers (circuit-id, site-id, client-type). Without these the API returns 403.
const fetchPostJSONScript = `(url, body, circuitID, siteID) => {
	return fetch(url, {
		method: 'POST',
		headers: {
			'Content-Type': 'application/json',
			'circuit-id': circuitID,
			'site-id': siteID,
			'client-type': 'consumer',
			'is-electron-mode': 'false'
		},
		credentials: 'include',
		body: body
	}).then(r => {
		if (!r.ok) throw new Error('HTTP ' + r.status);
		return r.json();
	}).then(obj => JSON.stringify(obj));
}`

// waitForCookieScript polls document.cookie until the target cookie name appears (max ~10s).
const waitForCookieScript = `(cookieName) => {
	return new Promise((resolve, reject) => {
		let tries = 0;
		const check = () => {
			if (document.cookie.includes(cookieName + '=')) {
				resolve(true);
			} else if (tries++ > 100) {
				reject(new Error('cookie ' + cookieName + ' not found after 10s'));
			} else {
				setTimeout(check, 100);
			}
		};
		check();
	});
}`

func (s *cinemagicScraper) Descriptor() string {
	return "cinemagic"
}

func (s *cinemagicScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	_, body, err := s.fetchShowings(ctx, req.Date)
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("failed to fetch data: %w", err)
	}
	if body == nil {
		return internal.NotFound(), nil
	}
	var resp cinemagicGraphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("unmarshal showingsForDate %s: %w", req.Date, err)
	}
	return internal.Found(groupCinemagicShowings(resp.Data.ShowingsForDate.Data)).In(portlandTZ), nil
}

// groupCinemagicShowings folds individual screenings into one showing per
// (movie, format) in the order each pair first appears by start time.
func groupCinemagicShowings(showings []cinemagicShowing) []internal.Showing {
	type screening struct {
		name   string
		format string
		start  time.Time
	}
	var screenings []screening
	var skipped int
	for _, showing := range showings {
		if !showing.Published || showing.Past {
			continue
		}
		start, err := time.Parse(time.RFC3339, showing.Time)
		if err != nil {
			skipped++
			continue
		}
		var format string
		if showing.DisplayMetaData != "" {
			var meta cinemagicDisplayMeta
			if err := json.Unmarshal([]byte(showing.DisplayMetaData), &meta); err == nil {
				format = strings.TrimSpace(meta.Classes)
			}
		}
		screenings = append(screenings, screening{
			name:   strings.TrimSpace(showing.Movie.Name),
			format: format,
			start:  start.In(portlandTZ),
		})
	}
	slices.SortStableFunc(screenings, func(a, b screening) int {
		return a.start.Compare(b.start)
	})

	index := make(map[string]int)
	var out []internal.Showing
	for _, sc := range screenings {
		key := sc.name + "\x00" + sc.format
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			showing := internal.Showing{Name: sc.name}
			if sc.format != "" {
				showing.Tags = []string{sc.format}
			}
			out = append(out, showing)
		}
		out[i].Times = append(out[i].Times, sc.start.Format("3:04pm"))
	}
	slog.Debug("cinemagic: grouped showings", "screenings", len(screenings), "showings", len(out), "skipped", skipped)
	return out
}

// PullGolden fetches dates.json and the showings for the next scheduled day.
func (s *cinemagicScraper) PullGolden(ctx context.Context, goldenDir string) error {
	datesResp, err := s.fetchDates(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	dates, err := parseDatesResponse(datesResp)
	if err != nil {
		return err
	}
	files := map[string][]byte{"dates": datesResp}
	if len(dates) > 0 {
		_, body, err := s.fetchShowings(ctx, dates[0])
		if err != nil {
			return fmt.Errorf("failed to fetch golden data: %w", err)
		}
		files[dates[0]] = body
	}
	return writeGoldenFiles(goldenDir, files)
}

func (s *cinemagicScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	datesResp, err := os.ReadFile(filepath.Join(goldenDir, "dates.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read dates golden file: %w", err)
	}

	entries, err := os.ReadDir(goldenDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden dir: %w", err)
	}
	goldenByDate := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name() == "dates.json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(goldenDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read golden file %s: %w", e.Name(), err)
		}
		goldenByDate[strings.TrimSuffix(e.Name(), ".json")] = data
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/graphql" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
			return
		}
		if r.Header.Get("Site-Id") != cinemagicSiteID {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("forbidden"))
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad request"))
			return
		}
		if bytes.Contains(body, []byte("datesWithShowing")) {
			_, _ = w.Write(datesResp)
			return
		}
		var req struct {
			Variables struct {
				Date string `json:"date"`
			} `json:"variables"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad request"))
			return
		}
		data, ok := goldenByDate[req.Variables.Date]
		if !ok {
			_, _ = w.Write([]byte(`{"data":{"showingsForDate":{"data":[],"count":0}}}`))
			return
		}
		_, _ = w.Write(data)
	}), nil
}

func datesRequestBody() ([]byte, error) {
	return json.Marshal(map[string]any{
		"query": cinemagicDatesQuery,
		"variables": map[string]any{
			"siteIds": []int{cinemagicSiteIDInt},
		},
	})
}

func showingsRequestBody(date string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"query": cinemagicShowingsQuery,
		"variables": map[string]any{
			"date":    date,
			"siteIds": []int{cinemagicSiteIDInt},
		},
	})
}

// parseDatesResponse extracts date strings from a datesWithShowing GraphQL response.
// The API returns {data: {datesWithShowing: {value: "[\"2026-02-20\",...]"}}}
// where the value field is a JSON-encoded string array.
func parseDatesResponse(body []byte) ([]string, error) {
	var resp struct {
		Data struct {
			DatesWithShowing struct {
				Value string `json:"value"`
			} `json:"datesWithShowing"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal datesWithShowing envelope: %w", err)
	}
	var dates []string
	if err := json.Unmarshal([]byte(resp.Data.DatesWithShowing.Value), &dates); err != nil {
		return nil, fmt.Errorf("%w: %s", errUnexpectedDatesResponseFormat, resp.Data.DatesWithShowing.Value)
	}
	return dates, nil
}

func (s *cinemagicScraper) fetchDates(ctx context.Context) ([]byte, error) {
	body, err := datesRequestBody()
	if err != nil {
		return nil, fmt.Errorf("marshal datesWithShowing: %w", err)
	}
	resp, err := s.graphQL(ctx, [][]byte{body})
	if err != nil {
		return nil, fmt.Errorf("fetch datesWithShowing: %w", err)
	}
	return resp[0], nil
}

// fetchShowings returns the datesWithShowing response and the showingsForDate
// response for date. The second is nil when date is not scheduled.
func (s *cinemagicScraper) fetchShowings(ctx context.Context, date string) ([]byte, []byte, error) {
	datesResp, err := s.fetchDates(ctx)
	if err != nil {
		return nil, nil, err
	}
	dates, err := parseDatesResponse(datesResp)
	if err != nil {
		return nil, nil, err
	}
	if !slices.Contains(dates, date) {
		slog.Debug("cinemagic: date not scheduled", "date", date, "available", len(dates))
		return datesResp, nil, nil
	}
	body, err := showingsRequestBody(date)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal showingsForDate %s: %w", date, err)
	}
	resp, err := s.graphQL(ctx, [][]byte{body})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch showingsForDate %s: %w", date, err)
	}
	return datesResp, resp[0], nil
}

// graphQL posts each body in order and returns the responses.
func (s *cinemagicScraper) graphQL(ctx context.Context, bodies [][]byte) ([][]byte, error) {
	gqlURL := s.endpoint("/graphql", nil)
	out := make([][]byte, 0, len(bodies))
	if s.headlessBrowser == nil {
		for _, body := range bodies {
			resp, err := s.postGraphQL(ctx, gqlURL, body)
			if err != nil {
				return nil, err
			}
			out = append(out, resp)
		}
		return out, nil
	}
	err := s.headlessBrowser.WithPage(ctx, s.baseURL+"/", func(page *rod.Page) error {
		// The ahoy_visit cookie is set once the SPA has initialized.
		if _, err := page.Context(ctx).Timeout(browser.PageStableTimeout).Eval(waitForCookieScript, "ahoy_visit"); err != nil {
			slog.Warn("cinemagic: cookie wait failed, proceeding anyway", "error", err)
		}
		for _, body := range bodies {
			result, err := page.Context(ctx).Timeout(browser.PageStableTimeout).Eval(
				fetchPostJSONScript, gqlURL, string(body), cinemagicCircuitID, cinemagicSiteID,
			)
			if err != nil {
				return err
			}
			out = append(out, []byte(result.Value.Str()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *cinemagicScraper) postGraphQL(ctx context.Context, gqlURL string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Circuit-Id", cinemagicCircuitID)
	req.Header.Set("Site-Id", cinemagicSiteID)
	req.Header.Set("Client-Type", "consumer")
	req.Header.Set("Is-Electron-Mode", "false")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", httputil.ErrBlocked, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s", errGraphQLRequestFailed, resp.Status)
	}
	return respBody, nil
}

type cinemagicGraphQLResponse struct {
	Data struct {
		ShowingsForDate struct {
			Data  []cinemagicShowing `json:"data"`
			Count int                `json:"count"`
		} `json:"showingsForDate"`
	} `json:"data"`
}

type cinemagicShowing struct {
	ID              string         `json:"id"`
	Time            string         `json:"time"`
	Published       bool           `json:"published"`
	Past            bool           `json:"past"`
	DisplayMetaData string         `json:"displayMetaData"`
	Movie           cinemagicMovie `json:"movie"`
}

type cinemagicMovie struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

type cinemagicDisplayMeta struct {
	Classes string `json:"classes"`
}
