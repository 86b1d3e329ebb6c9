package scraper

import (
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_FilmNoir_FetchShowings(t *testing.T) {
	server := MountGoldenTestServer(t, "filmnoir")
	s := FilmNoir(WithBaseURL(server.URL), WithClient(server.Client()))

	result, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "film noir cinema", Date: goldenDate})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeFound, result.Outcome)
	assert.Equal(t, []internal.Showing{
		{Name: "The Third Man", Times: []string{"7:30 PM"}},
		{Name: "Sunset Boulevard", Times: []string{"9:45 PM"}},
	}, result.Showings)

	result, err = s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "film noir cinema", Date: "2024-05-10"})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, []internal.Showing{{Name: "Double Indemnity", Times: []string{"8:00 PM"}}}, result.Showings)

	result, err = s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "film noir cinema", Date: "2024-05-02"})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeNotFound, result.Outcome)
}

func TestUnit_FilmNoir_ProgramPrefixIsNotPadded(t *testing.T) {
	assert.Equal(t, "/program/2024/5/1/", programPrefix(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "/program/2024/12/25/", programPrefix(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)))
}
