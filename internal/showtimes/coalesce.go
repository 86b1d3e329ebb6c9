package showtimes

import "github.com/drewfead/marquee/internal"

// CombineTimes merges consecutive showings of the same movie into one, with the
// run's labels (times, then tags) concatenated in order. Only adjacent duplicates
// merge; scrapers emit per-format rows of one movie together.
func CombineTimes(showings []internal.Showing) []internal.Showing {
	out := make([]internal.Showing, 0, len(showings))
	for _, s := range showings {
		if n := len(out); n > 0 && out[n-1].Name == s.Name {
			out[n-1].Times = append(out[n-1].Times, s.Labels()...)
			continue
		}
		out = append(out, internal.Showing{Name: s.Name, Times: s.Labels()})
	}
	return out
}
