package showtimes

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var ErrUnrecognizedDate = errors.New("unrecognized date")

// UnrecognizedDateMessage is what the CLI prints before exiting cleanly on a bad date.
const UnrecognizedDateMessage = "I don't recognize that date.. try again ?"

var weekdayKeywords = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "weds": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// yearlessLayouts cover the month/day captions theater sites print without a year.
var yearlessLayouts = []string{
	"Mon, Jan 02",
	"Mon, Jan 2",
	"Monday, January 2",
	"Monday, Jan 2",
	"Mon Jan 2",
	"January 2",
	"Jan 2",
	"1/2",
}

// NormalizeDate resolves a date expression to YYYY-MM-DD relative to now.
func NormalizeDate(input string, now time.Time) (string, error) {
	return FormatDate(input, time.DateOnly, now)
}

// FormatDate resolves a date expression and renders it with layout, e.g.
// "Monday" for search queries or "Mon, Jan 02" for caption matching.
func FormatDate(input, layout string, now time.Time) (string, error) {
	t, err := ResolveDate(input, now)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// ResolveDate turns a keyword (today, tomorrow, tom, weekday names) or a parseable
// date string into midnight of that day in now's location. Weekdays resolve to the
// next occurrence on or after today. Dates printed without a year take now's year.
func ResolveDate(input string, now time.Time) (time.Time, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	today := midnight(now)
	switch key {
	case "":
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnrecognizedDate)
	case "today":
		return today, nil
	case "tomorrow", "tom":
		return today.AddDate(0, 0, 1), nil
	}
	if wd, ok := weekdayKeywords[key]; ok {
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		return today.AddDate(0, 0, ahead), nil
	}

	loc := now.Location()
	trimmed := strings.TrimSpace(input)
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
		}
	}
	t, err := dateparse.ParseIn(trimmed, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedDate, input)
	}
	year := t.Year()
	if year == 0 {
		year = now.Year()
	}
	return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var meridiemRE = regexp.MustCompile(`(?i)\d\s*[ap]m`)

// CleanTimeLabel drops anything after the first am/pm marker, e.g. footnote
// glyphs or "*" suffixes. Labels without a marker come back trimmed.
func CleanTimeLabel(raw string) string {
	loc := meridiemRE.FindStringIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw[:loc[1]])
}

// CompactTimeLabel is the form filtered times are reported in: cleaned, no spaces, lower-cased.
func CompactTimeLabel(raw string) string {
	return strings.ToLower(strings.ReplaceAll(CleanTimeLabel(raw), " ", ""))
}

var timeLayouts = []string{"3:04pm", "3pm", "15:04"}

// ParseTimeOfDay parses a compact label ("7:30pm", "11am", "19:30") into hours and minutes.
func ParseTimeOfDay(label string) (hour, minute int, err error) {
	compact := CompactTimeLabel(label)
	for _, layout := range timeLayouts {
		if t, perr := time.Parse(layout, compact); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTime, label)
}

var ErrUnparseableTime = errors.New("unparseable time label")
