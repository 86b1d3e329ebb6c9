package internal

import (
	"fmt"
	"strings"
	"time"
)

// ShowingsRequest asks a scraper for one theater's schedule on one day.
type ShowingsRequest struct {
	Theater string `json:"theater"`
	Date    string `json:"date"` // YYYY-MM-DD
}

// Showing is one movie's time labels at a theater on a date. Tags carry
// presentation formats (35mm, IMAX) reported separately from the times.
type Showing struct {
	Name  string   `json:"name" yaml:"name"`
	Times []string `json:"times" yaml:"times"`
	Tags  []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Labels returns the showing's times followed by its tags rendered as "[ tag ]".
func (s Showing) Labels() []string {
	out := make([]string, 0, len(s.Times)+len(s.Tags))
	out = append(out, s.Times...)
	for _, tag := range s.Tags {
		out = append(out, FormatTag(tag))
	}
	return out
}

// FormatTag renders a presentation format the way it appears in a time list.
func FormatTag(tag string) string {
	return "[ " + strings.TrimSpace(tag) + " ]"
}

// ZipShowings pairs parallel name and time lists. Scrapers emit both lists from
// the same document walk, so a length mismatch is a scraper bug.
func ZipShowings(names []string, times [][]string) []Showing {
	if len(names) != len(times) {
		panic(fmt.Sprintf("zip showings: %d names != %d time lists", len(names), len(times)))
	}
	out := make([]Showing, len(names))
	for i := range names {
		out[i] = Showing{Name: names[i], Times: times[i]}
	}
	return out
}

type Outcome uint8

const (
	// OutcomeFound means the source had showings for the date.
	OutcomeFound Outcome = iota
	// OutcomeNotFound means the source answered but had nothing for the date.
	OutcomeNotFound
	// OutcomeNoMatch means the source did not recognize the theater or date at all.
	// Only this outcome advances the fallback chain.
	OutcomeNoMatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeNoMatch:
		return "no-match"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

type ScrapeResult struct {
	Outcome  Outcome   `json:"outcome"`
	Showings []Showing `json:"showings"`
	// Location is the zone the showing times are printed in. Nil means local time.
	Location *time.Location `json:"-"`
}

// In records the zone the result's time labels are printed in.
func (r ScrapeResult) In(loc *time.Location) ScrapeResult {
	r.Location = loc
	return r
}

// Found wraps showings, downgrading to NotFound when there are none.
func Found(showings []Showing) ScrapeResult {
	if len(showings) == 0 {
		return NotFound()
	}
	return ScrapeResult{Outcome: OutcomeFound, Showings: showings}
}

func NotFound() ScrapeResult {
	return ScrapeResult{Outcome: OutcomeNotFound, Showings: []Showing{}}
}

func NoMatch() ScrapeResult {
	return ScrapeResult{Outcome: OutcomeNoMatch, Showings: []Showing{}}
}

// UnknownRating marks a movie no rating source had a score for. It is distinct
// from a real score of 0.
const UnknownRating = -1.0

type Entry struct {
	ID      string  `json:"id" yaml:"id"`
	Showing `yaml:",inline"`
	Rating  float64 `json:"rating" yaml:"rating"`
}

// Known reports whether the entry carries a real rating.
func (e Entry) Known() bool {
	return e.Rating >= 0
}

// Listing is everything rendered for one theater. Rated is false when ratings
// were skipped or unavailable for the run, in which case entry ratings are meaningless.
type Listing struct {
	Theater string  `json:"theater" yaml:"theater"`
	Date    string  `json:"date" yaml:"date"`
	Entries []Entry `json:"entries" yaml:"entries"`
	Rated   bool    `json:"rated" yaml:"rated"`
}
