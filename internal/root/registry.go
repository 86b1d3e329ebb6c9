package root

import (
	"net/http"
	"time"

	"github.com/drewfead/marquee/internal/browser"
	"github.com/drewfead/marquee/internal/scraper"
	"github.com/jonboulle/clockwork"
)

const (
	adapterCacheSize = 64
	adapterCacheTTL  = 5 * time.Minute
)

// defaultRegistry routes every theater with a dedicated adapter to it and sends
// the rest through search, then the aggregator. A non-nil headless browser
// carries the sites that wall off plain HTTP clients.
func defaultRegistry(client *http.Client, headless browser.Interface, clock clockwork.Clock) scraper.Registry {
	httpOpts := []scraper.Option{scraper.WithClient(client), scraper.WithClock(clock)}
	walledOpts := httpOpts
	if headless != nil {
		walledOpts = []scraper.Option{scraper.WithBrowser(headless), scraper.WithClock(clock)}
	}
	cached := scraper.Cached(adapterCacheSize, adapterCacheTTL)

	return scraper.NewRegistry(
		scraper.WithTheater("metrograph", scraper.Metrograph(httpOpts...), cached),
		scraper.WithTheater("videology", scraper.Videology(httpOpts...), cached),
		scraper.WithTheaters([]string{"film noir cinema", "film noir"}, scraper.FilmNoir(httpOpts...), cached),
		scraper.WithTheaters(scraper.PghFilmmakersTheaters(), scraper.PghFilmmakers(httpOpts...), cached),
		scraper.WithTheater("hollywood theatre", scraper.HollywoodTheatre(walledOpts...), cached),
		scraper.WithTheater("cinemagic", scraper.Cinemagic(walledOpts...), cached),
		scraper.WithTheaters([]string{"cinema 21", "cinema21"}, scraper.Cinema21(httpOpts...), cached),
		scraper.WithFallback(scraper.Search(httpOpts...)),
		scraper.WithFallback(scraper.Aggregator(httpOpts...)),
	)
}
