package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/drewfead/marquee/internal"
)

const defaultHollywoodTheatreBaseURL = "https://www.hollywoodtheatre.org"

const portlandLocale = "en_US"

type hollywoodTheatreScraper struct {
	source
}

// HollywoodTheatre reads the theatre's show-list API. The "today" and
// "coming-soon" views together cover every scheduled day.
func HollywoodTheatre(opts ...Option) internal.Scraper {
	return &hollywoodTheatreScraper{source: newSource(defaultHollywoodTheatreBaseURL, opts)}
}

func (s *hollywoodTheatreScraper) Descriptor() string {
	return "hollywood-theatre"
}

var showListViews = []string{"today", "coming-soon"}

func (s *hollywoodTheatreScraper) FetchShowings(ctx context.Context, req internal.ShowingsRequest) (internal.ScrapeResult, error) {
	allJSON, err := s.fetchAllData(ctx)
	if err != nil {
		return internal.ScrapeResult{}, fmt.Errorf("failed to fetch data: %w", err)
	}

	var allShows []showEntry
	for _, view := range showListViews {
		var payload showListResponse
		if err := json.Unmarshal(allJSON[view], &payload); err != nil {
			return internal.ScrapeResult{}, fmt.Errorf("failed to unmarshal %s: %w", view, err)
		}
		allShows = append(allShows, payload.Shows...)
	}
	slog.Debug("hollywoodtheatre: API response", "shows", len(allShows))

	return internal.Found(s.showingsOn(allShows, req.Date)).In(portlandTZ), nil
}

// showingsOn keeps the visible shows scheduled on date. A show listed in both
// views is reported once.
func (s *hollywoodTheatreScraper) showingsOn(shows []showEntry, date string) []internal.Showing {
	const timeLayout = "3:04pm" // almost time.Kitchen, but with lowercase "am/pm"

	seen := make(map[string]bool)
	var out []internal.Showing
	var skippedParse int
	for _, show := range shows {
		if show.HideEvents || show.QueryDate != date {
			continue
		}
		key := show.ShowPostID + "|" + show.QueryDate
		if show.ShowPostID != "" && seen[key] {
			continue
		}
		seen[key] = true

		var times []string
		for _, ev := range show.Events {
			start, err := time.ParseInLocation(timeLayout, strings.ToLower(strings.TrimSpace(ev.StartTime)), portlandTZ)
			if err != nil {
				skippedParse++
				continue
			}
			times = append(times, start.Format(timeLayout))
		}

		name, tags := splitTitleFormats(show.Title)
		if name == "" {
			name = strings.TrimSpace(show.Title)
		}
		if f := strings.TrimSpace(show.Format); f != "" && !containsFold(tags, f) {
			tags = append(tags, f)
		}
		out = append(out, internal.Showing{Name: name, Times: times, Tags: tags})
	}
	if skippedParse > 0 {
		slog.Debug("hollywoodtheatre: unparseable start times", "skipped", skippedParse)
	}
	return out
}

// PullGolden fetches show-list (today, coming-soon) and writes golden files.
func (s *hollywoodTheatreScraper) PullGolden(ctx context.Context, goldenDir string) error {
	allJSON, err := s.fetchAllData(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenFiles(goldenDir, allJSON)
}

func (s *hollywoodTheatreScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	views := make(map[string][]byte, len(showListViews))
	for _, view := range showListViews {
		body, err := os.ReadFile(filepath.Join(goldenDir, view+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s golden file: %w", view, err)
		}
		views[view] = body
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/wp-json/gecko-theme/v1/show-list" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
			return
		}
		body, ok := views[r.URL.Query().Get("view")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid view"))
			return
		}
		_, _ = w.Write(body)
	}), nil
}

// fetchAllData returns the show-list JSON keyed by view.
func (s *hollywoodTheatreScraper) fetchAllData(ctx context.Context) (map[string][]byte, error) {
	results := make(map[string][]byte, len(showListViews))
	for _, view := range showListViews {
		body, err := s.fetchJSON(ctx, s.showListURL(view))
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", view, err)
		}
		results[view] = body
	}
	return results, nil
}

func (s *hollywoodTheatreScraper) showListURL(view string) string {
	return s.endpoint("/wp-json/gecko-theme/v1/show-list", url.Values{
		"view":   {view},
		"locale": {portlandLocale},
	})
}

// showListResponse matches /wp-json/gecko-theme/v1/show-list?view=coming-soon&locale=en_US
type showListResponse struct {
	Shows []showEntry `json:"shows"`
}

type showEntry struct {
	ShowPostID  string       `json:"show_post_id"`
	Title       string       `json:"title"`
	Series      string       `json:"series"`
	Permalink   string       `json:"permalink"`
	DisplayDate string       `json:"display_date"`
	QueryDate   string       `json:"query_date"`
	Format      string       `json:"format"`
	HideEvents  bool         `json:"hide_events"`
	Events      []eventEntry `json:"events"`
}

type eventEntry struct {
	ID        int    `json:"id"`
	StartTime string `json:"start_time"`
}

// formatTerms are the presentation formats the theatre appends to titles.
var formatTerms = []string{"70mm", "35mm", "16mm", "8mm", "Digital"}

// titleSuffixes are " in X" and " (X)" for each format term, built at init.
var titleSuffixes []string

func init() {
	for _, t := range formatTerms {
		titleSuffixes = append(titleSuffixes, " in "+t, " ("+t+")")
	}
}

var trailingParenRE = regexp.MustCompile(`\s*\(([^)]+)\)\s*$`)

// stripTrailingParen removes a single trailing "(...)" from s if the content is a format term or 4-digit year.
// Returns (trimmed s, content, true) or (s, "", false).
func stripTrailingParen(s string) (string, string, bool) {
	loc := trailingParenRE.FindStringSubmatchIndex(s)
	if loc == nil {
		return s, "", false
	}
	inner := strings.TrimSpace(s[loc[2]:loc[3]])
	for _, t := range formatTerms {
		if strings.EqualFold(inner, t) {
			return strings.TrimSpace(s[:loc[0]]), inner, true
		}
	}
	if len(inner) == 4 && isDigits(inner) {
		return strings.TrimSpace(s[:loc[0]]), inner, true
	}
	return s, "", false
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// splitTitleFormats separates a listing title from its presentation notes, e.g.
// "MALCOLM X in 70mm with Open Captions" is "MALCOLM X" shown as [Open Captions 70mm].
// Release years in parentheses are dropped without becoming tags.
func splitTitleFormats(raw string) (name string, tags []string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}

	if i := strings.Index(strings.ToUpper(s), " WITH "); i > 0 {
		if note := strings.TrimSpace(s[i+len(" WITH "):]); note != "" {
			tags = append(tags, note)
		}
		s = strings.TrimSpace(s[:i])
	}

	for {
		unchanged := true

		upper := strings.ToUpper(s)
		for _, suf := range titleSuffixes {
			if strings.HasSuffix(upper, strings.ToUpper(suf)) {
				stripped := strings.TrimSpace(s[len(s)-len(suf):])
				if strings.HasPrefix(strings.ToLower(stripped), "in ") {
					stripped = stripped[len("in "):]
				}
				stripped = strings.Trim(stripped, "()")
				tags = append(tags, strings.TrimSpace(stripped))
				s = strings.TrimSpace(s[:len(s)-len(suf)])
				unchanged = false
				break
			}
		}
		if unchanged {
			if trimmed, content, ok := stripTrailingParen(s); ok {
				if !isDigits(content) {
					tags = append(tags, content)
				}
				s = trimmed
				unchanged = false
			}
		}
		if unchanged {
			break
		}
	}

	return strings.TrimSpace(s), tags
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
