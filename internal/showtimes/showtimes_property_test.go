package showtimes

import (
	"fmt"
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"pgregory.net/rapid"
)

const propertyDate = "2024-05-01"

// clockTimeGen generates a minute of the day on propertyDate.
func clockTimeGen() *rapid.Generator[time.Time] {
	return rapid.Custom(func(t *rapid.T) time.Time {
		hour := rapid.IntRange(0, 23).Draw(t, "hour")
		minute := rapid.IntRange(0, 59).Draw(t, "minute")
		return time.Date(2024, 5, 1, hour, minute, 0, 0, time.UTC)
	})
}

// labelGen renders a time the way theater sites tend to: "7:30 PM", "7:30pm", "19:30".
func labelGen(at time.Time) *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		at.Format("3:04 PM"),
		at.Format("3:04pm"),
		at.Format("15:04"),
	})
}

func TestProperty_FilterPast_PartitionsOnCutoff(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cutoff := clockTimeGen().Draw(t, "cutoff")
		times := rapid.SliceOfN(clockTimeGen(), 0, 12).Draw(t, "times")

		tokens := make([]string, len(times))
		for i, at := range times {
			tokens[i] = Token(propertyDate, labelGen(at).Draw(t, fmt.Sprintf("label%d", i)))
		}
		got, err := FilterPast(tokens, cutoff)
		if err != nil {
			t.Fatalf("FilterPast: %v", err)
		}
		if len(got) != len(tokens) {
			t.Fatalf("got %d results for %d tokens", len(got), len(tokens))
		}
		for i, at := range times {
			kept := len(got[i]) == 1
			if kept == at.Before(cutoff) {
				t.Fatalf("token %q kept=%v with cutoff %s", tokens[i], kept, cutoff.Format("15:04"))
			}
		}
	})
}

func TestProperty_FilterPast_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cutoff := clockTimeGen().Draw(t, "cutoff")
		times := rapid.SliceOfN(clockTimeGen(), 0, 12).Draw(t, "times")

		group := make([]string, len(times))
		for i, at := range times {
			group[i] = Token(propertyDate, labelGen(at).Draw(t, fmt.Sprintf("label%d", i)))
		}
		once, err := FilterPastGrouped([][]string{group}, cutoff)
		if err != nil {
			t.Fatalf("first pass: %v", err)
		}
		again := make([]string, len(once[0]))
		for i, label := range once[0] {
			again[i] = Token(propertyDate, label)
		}
		twice, err := FilterPastGrouped([][]string{again}, cutoff)
		if err != nil {
			t.Fatalf("second pass: %v", err)
		}
		if fmt.Sprint(once) != fmt.Sprint(twice) {
			t.Fatalf("not idempotent: %v then %v", once, twice)
		}
	})
}

func entryGen() *rapid.Generator[internal.Entry] {
	return rapid.Custom(func(t *rapid.T) internal.Entry {
		rating := -1.0
		if rapid.Bool().Draw(t, "known") {
			rating = rapid.Float64Range(0, 1).Draw(t, "rating")
		}
		return internal.Entry{
			Showing: internal.Showing{
				Name:  rapid.StringMatching(`[A-Z][a-z]{0,10}`).Draw(t, "name"),
				Times: []string{"7pm"},
			},
			Rating: rating,
		}
	})
}

func TestProperty_FilterByRating_ZeroThresholdIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOfN(entryGen(), 0, 20).Draw(t, "entries")
		got := FilterByRating(in, 0)
		if fmt.Sprint(got) != fmt.Sprint(in) {
			t.Fatalf("threshold 0 changed entries: %v -> %v", in, got)
		}
	})
}

func TestProperty_FilterByRating_NeverDropsUnknown(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOfN(entryGen(), 0, 20).Draw(t, "entries")
		threshold := rapid.Float64Range(0.01, 100).Draw(t, "threshold")
		got := FilterByRating(in, threshold)

		var unknownIn, unknownOut int
		for _, e := range in {
			if !e.Known() {
				unknownIn++
			}
		}
		for _, e := range got {
			if !e.Known() {
				unknownOut++
				continue
			}
			if e.Rating < NormalizeThreshold(threshold) {
				t.Fatalf("kept %v below threshold %v", e, threshold)
			}
		}
		if unknownIn != unknownOut {
			t.Fatalf("unknown entries %d -> %d", unknownIn, unknownOut)
		}
	})
}

func TestProperty_CombineTimes_PreservesLabels(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 15).Draw(t, "n")
		showings := make([]internal.Showing, n)
		var total int
		for i := range showings {
			times := rapid.SliceOfN(rapid.SampledFrom([]string{"1pm", "4pm", "7:30pm"}), 1, 3).Draw(t, "times")
			showings[i] = internal.Showing{
				Name:  rapid.SampledFrom([]string{"A", "B", "C"}).Draw(t, "name"),
				Times: times,
			}
			total += len(times)
		}
		got := CombineTimes(showings)

		var combined int
		for i, s := range got {
			combined += len(s.Times)
			if i > 0 && got[i-1].Name == s.Name {
				t.Fatalf("adjacent duplicate %q survived", s.Name)
			}
		}
		if combined != total {
			t.Fatalf("labels %d -> %d", total, combined)
		}
	})
}
