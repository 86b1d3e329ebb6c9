package root

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/ratings"
	"github.com/drewfead/marquee/internal/scraper"
	"github.com/drewfead/marquee/internal/theaters"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *theaters.Catalog {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "theaters_nyc", []byte("Metrograph\nFilm Forum\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "theaters_pdx", []byte("Cinemagic\n"), 0o644))
	return theaters.NewCatalog(theaters.WithFs(fsys))
}

func TestUnit_ResolveArgs(t *testing.T) {
	catalog := testCatalog(t)
	tests := []struct {
		name     string
		args     []string
		city     string
		dateExpr string
	}{
		{name: "defaults", args: nil, city: "pdx", dateExpr: "today"},
		{name: "city only", args: []string{"NYC"}, city: "NYC", dateExpr: "today"},
		{name: "date only", args: []string{"tomorrow"}, city: "pdx", dateExpr: "tomorrow"},
		{name: "city then date", args: []string{"nyc", "fri"}, city: "nyc", dateExpr: "fri"},
		{name: "date then city", args: []string{"fri", "nyc"}, city: "nyc", dateExpr: "fri"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveArgs(catalog, tt.args, "pdx")
			require.NoError(t, err)
			assert.Equal(t, tt.city, got.City)
			assert.Equal(t, tt.dateExpr, got.DateExpr)
			assert.NotEmpty(t, got.Theaters)
		})
	}
}

func TestUnit_ResolveArgs_Errors(t *testing.T) {
	catalog := testCatalog(t)

	_, err := resolveArgs(catalog, []string{"fri", "sat"}, "pdx")
	require.ErrorIs(t, err, ErrUnknownCity)
	assert.Contains(t, err.Error(), "nyc, pdx")

	_, err = resolveArgs(catalog, nil, "atlantis")
	require.ErrorIs(t, err, ErrUnknownCity)

	_, err = resolveArgs(catalog, []string{"nyc", "fri", "extra"}, "pdx")
	require.ErrorIs(t, err, ErrTooManyArgs)
}

type fixed struct {
	result internal.ScrapeResult
}

func (f fixed) Descriptor() string { return "fixed" }

func (f fixed) FetchShowings(context.Context, internal.ShowingsRequest) (internal.ScrapeResult, error) {
	return f.result, nil
}

type fixedRatings map[string]internal.RatingRecord

func (f fixedRatings) Ratings(_ context.Context, name string) (internal.RatingRecord, error) {
	return f[name], nil
}

// runCLI runs the root command against the bundled pdx list with only
// cinemagic answering.
func runCLI(t *testing.T, extra []RootOption, args ...string) (string, string, error) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/marquee.toml", []byte("default_city = \"pdx\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/watchlist", []byte("# to see\nVertigo\nObscure\n"), 0o644))

	registry := scraper.NewRegistry(scraper.WithTheater("cinemagic", fixed{result: internal.Found([]internal.Showing{
		{Name: "Civil War", Times: []string{"6:15pm"}},
		{Name: "Stop Making Sense", Times: []string{"9:45pm"}},
	})}))
	var stdout, stderr bytes.Buffer
	opts := append([]RootOption{
		WithRegistry(registry),
		WithClock(clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))),
		WithOutput(&stdout, &stderr),
		WithFs(fsys),
	}, extra...)

	cmd, err := Root(t.Context(), opts...)
	require.NoError(t, err)
	err = cmd.Run(t.Context(), append([]string{"marquee", "--config", "/marquee.toml"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestUnit_Root_TextListing(t *testing.T) {
	stdout, _, err := runCLI(t, nil, "--simple")
	require.NoError(t, err)

	want := "\nskipping hollywood theatre...\n" +
		"\n" +
		"__________CINEMAGIC__________\n" +
		"Civil War          |  6:15pm\n" +
		"Stop Making Sense  |  9:45pm\n" +
		"\nskipping cinema 21...\n" +
		"\nskipping laurelhurst theater...\n" +
		"\n"
	assert.Equal(t, want, stdout)
}

func TestUnit_Root_RatedAndSorted(t *testing.T) {
	provider := fixedRatings{
		"Civil War":         {ratings.RottenTomatoes: 0.81},
		"Stop Making Sense": {ratings.RottenTomatoes: 1},
	}
	stdout, _, err := runCLI(t, []RootOption{WithRatings(provider)}, "--sort", "pdx", "today")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(100%) Stop Making Sense  |  9:45pm\n(81%)  Civil War          |  6:15pm\n")
}

func TestUnit_Root_Threshold(t *testing.T) {
	provider := fixedRatings{
		"Civil War":         {ratings.RottenTomatoes: 0.81},
		"Stop Making Sense": {ratings.RottenTomatoes: 1},
	}
	stdout, _, err := runCLI(t, []RootOption{WithRatings(provider)}, "-t", "90")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Stop Making Sense")
	assert.NotContains(t, stdout, "Civil War")
}

func TestUnit_Root_UnrecognizedDate(t *testing.T) {
	stdout, _, err := runCLI(t, nil, "--simple", "someday-never")
	require.NoError(t, err)
	assert.Equal(t, "I don't recognize that date.. try again ?\n", stdout)
}

func TestUnit_Root_UnknownCity(t *testing.T) {
	_, _, err := runCLI(t, nil, "--simple", "atlantis", "tomorrow")
	require.ErrorIs(t, err, ErrUnknownCity)
}

func TestUnit_Root_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, nil, "--simple", "-o", "json", "wed")
	require.NoError(t, err)

	var listings []internal.Listing
	require.NoError(t, json.Unmarshal([]byte(stdout), &listings))
	require.Len(t, listings, 4)
	assert.Equal(t, "cinemagic", listings[1].Theater)
	assert.Equal(t, "2024-05-01", listings[1].Date)
	require.Len(t, listings[1].Entries, 2)
	assert.NotEmpty(t, listings[1].Entries[0].ID)
	assert.False(t, listings[1].Rated)
}

func TestUnit_Root_File(t *testing.T) {
	provider := fixedRatings{"Vertigo": {ratings.RottenTomatoes: 0.93}}
	stdout, _, err := runCLI(t, []RootOption{WithRatings(provider)}, "--file", "/watchlist")
	require.NoError(t, err)
	assert.Contains(t, stdout, "WATCHLIST")
	assert.Contains(t, stdout, "(93%)  Vertigo  |  \n")
	assert.Contains(t, stdout, "( ? )  Obscure  |  \n")
}

func TestUnit_Root_MissingRatingKeyWarns(t *testing.T) {
	t.Setenv("MARQUEE_OMDB_API_KEY", "")
	t.Setenv("MARQUEE_TMDB_TOKEN", "")
	stdout, stderr, err := runCLI(t, nil)
	require.NoError(t, err)
	assert.Contains(t, stderr, "no rating source configured")
	assert.Contains(t, stdout, "Civil War          |  6:15pm")
}

func TestUnit_Root_BadOutputFormat(t *testing.T) {
	_, _, err := runCLI(t, nil, "--simple", "-o", "xml")
	require.Error(t, err)
}
