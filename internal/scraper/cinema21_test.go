package scraper

import (
	"testing"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Cinema21_FetchShowings(t *testing.T) {
	server := MountGoldenTestServer(t, "cinema21")
	s := Cinema21(WithBaseURL(server.URL), WithClient(server.Client()))

	result, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "cinema 21", Date: goldenDate})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeFound, result.Outcome)
	assert.Equal(t, []internal.Showing{
		{Name: "La Chimera", Times: []string{"4:15pm"}},
		{Name: "Love Lies Bleeding", Times: []string{"9:30pm", "1:00pm"}},
	}, result.Showings)

	result, err = s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "cinema 21", Date: "2024-05-03"})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeNotFound, result.Outcome)
}
