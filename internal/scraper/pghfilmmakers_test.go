package scraper

import (
	"testing"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_PghFilmmakers_FetchShowings(t *testing.T) {
	server := MountGoldenTestServer(t, "pghfilmmakers")
	s := PghFilmmakers(WithBaseURL(server.URL), WithClient(server.Client()))

	result, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "Regent Square Theater", Date: goldenDate})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeFound, result.Outcome)
	assert.Equal(t, []internal.Showing{
		{Name: "Perfect Days", Times: []string{"2:00 pm"}},
		{Name: "Perfect Days", Times: []string{"7:30 pm"}},
		{Name: "La Chimera", Times: []string{"9:45 pm"}},
	}, result.Showings)
}

func TestUnit_PghFilmmakers_NoCaptionForDay(t *testing.T) {
	server := MountGoldenTestServer(t, "pghfilmmakers")
	s := PghFilmmakers(WithBaseURL(server.URL), WithClient(server.Client()))

	result, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "harris theater", Date: goldenDate})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeNotFound, result.Outcome)
	assert.Empty(t, result.Showings)
}

func TestUnit_PghFilmmakers_UnknownLocation(t *testing.T) {
	_, err := PghFilmmakers().FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "row house cinema", Date: goldenDate})
	require.ErrorIs(t, err, ErrUnknownLocation)
}

func TestUnit_PghFilmmakers_MissingGoldenPage(t *testing.T) {
	server := MountGoldenTestServer(t, "pghfilmmakers")
	s := PghFilmmakers(WithBaseURL(server.URL), WithClient(server.Client()))

	_, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "melwood screening room", Date: goldenDate})
	require.Error(t, err)
}

func TestUnit_PghFilmmakers_Theaters(t *testing.T) {
	assert.Equal(t, []string{"harris theater", "melwood screening room", "regent square theater"}, PghFilmmakersTheaters())
}
