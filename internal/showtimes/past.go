package showtimes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drewfead/marquee/internal"
)

// TokenSeparator joins a date and a time label into a single comparable token.
const TokenSeparator = " @ "

var ErrMalformedToken = errors.New("malformed date-time token")

// Token joins date and label, e.g. "2024-05-01 @ 7:30 PM".
func Token(date, label string) string {
	return date + TokenSeparator + label
}

// ParseToken splits a token and resolves it to an instant in ref's location. It
// returns the instant and the compact time label.
func ParseToken(token string, ref time.Time) (time.Time, string, error) {
	datePart, timePart, ok := strings.Cut(token, TokenSeparator)
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	day, err := ResolveDate(datePart, ref)
	if err != nil {
		return time.Time{}, "", err
	}
	hour, minute, err := ParseTimeOfDay(timePart)
	if err != nil {
		return time.Time{}, "", err
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	return at, CompactTimeLabel(timePart), nil
}

// FilterPast keeps tokens at or after cutoff. The result has one entry per token:
// a singleton holding the compact time label, or empty if the time has passed.
func FilterPast(tokens []string, cutoff time.Time) ([][]string, error) {
	out := make([][]string, 0, len(tokens))
	for _, token := range tokens {
		kept, err := keepUpcoming([]string{token}, cutoff)
		if err != nil {
			return nil, err
		}
		out = append(out, kept)
	}
	return out, nil
}

// FilterPastGrouped is FilterPast for tokens already grouped per movie. Each group
// keeps its upcoming labels in order.
func FilterPastGrouped(groups [][]string, cutoff time.Time) ([][]string, error) {
	out := make([][]string, 0, len(groups))
	for _, group := range groups {
		kept, err := keepUpcoming(group, cutoff)
		if err != nil {
			return nil, err
		}
		out = append(out, kept)
	}
	return out, nil
}

func keepUpcoming(tokens []string, cutoff time.Time) ([]string, error) {
	kept := []string{}
	for _, token := range tokens {
		at, label, err := ParseToken(token, cutoff)
		if err != nil {
			return nil, err
		}
		if at.Before(cutoff) {
			continue
		}
		kept = append(kept, label)
	}
	return kept, nil
}

// FilterShowings drops the past times of showings scheduled on date, then drops
// showings with no times left. Tags survive on showings that keep a time.
func FilterShowings(showings []internal.Showing, date string, cutoff time.Time) ([]internal.Showing, error) {
	if len(showings) == 0 {
		return []internal.Showing{}, nil
	}
	groups := make([][]string, len(showings))
	for i, s := range showings {
		groups[i] = make([]string, len(s.Times))
		for j, t := range s.Times {
			groups[i][j] = Token(date, t)
		}
	}
	kept, err := FilterPastGrouped(groups, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]internal.Showing, len(showings))
	for i, s := range showings {
		out[i] = internal.Showing{Name: s.Name, Times: kept[i], Tags: s.Tags}
	}
	return DropEmpty(out), nil
}

// DropEmpty removes showings with no times.
func DropEmpty(showings []internal.Showing) []internal.Showing {
	out := make([]internal.Showing, 0, len(showings))
	for _, s := range showings {
		if len(s.Times) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}
