package scraper

import (
	"testing"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Cinemagic_FetchShowings(t *testing.T) {
	server := MountGoldenTestServer(t, "cinemagic")
	s := Cinemagic(WithBaseURL(server.URL), WithClient(server.Client()))

	result, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "cinemagic", Date: goldenDate})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeFound, result.Outcome)
	assert.Equal(t, portlandTZ, result.Location, "times are Portland wall-clock")
	assert.Equal(t, []internal.Showing{
		{Name: "Stop Making Sense", Times: []string{"3:00pm", "9:45pm"}},
		{Name: "Civil War", Times: []string{"6:15pm"}},
		{Name: "Stop Making Sense", Times: []string{"7:30pm"}, Tags: []string{"35mm"}},
	}, result.Showings)
}

func TestUnit_Cinemagic_ScheduledDayWithoutShowings(t *testing.T) {
	server := MountGoldenTestServer(t, "cinemagic")
	s := Cinemagic(WithBaseURL(server.URL), WithClient(server.Client()))

	result, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "cinemagic", Date: "2024-05-02"})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeNotFound, result.Outcome)
}

func TestUnit_Cinemagic_UnscheduledDay(t *testing.T) {
	server := MountGoldenTestServer(t, "cinemagic")
	s := Cinemagic(WithBaseURL(server.URL), WithClient(server.Client()))

	result, err := s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "cinemagic", Date: "2024-07-04"})
	require.NoError(t, err, "FetchShowings")
	assert.Equal(t, internal.OutcomeNotFound, result.Outcome)
	assert.Empty(t, result.Showings)
}

func TestUnit_ParseDatesResponse(t *testing.T) {
	dates, err := parseDatesResponse([]byte(`{"data":{"datesWithShowing":{"value":"[\"2024-05-01\"]"}}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01"}, dates)

	_, err = parseDatesResponse([]byte(`{"data":{"datesWithShowing":{"value":"not json"}}}`))
	require.ErrorIs(t, err, errUnexpectedDatesResponseFormat)
}

func TestIntegration_Cinemagic_Showings(t *testing.T) {
	result, err := Cinemagic().FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "cinemagic", Date: todayDate()})
	require.NoError(t, err, "FetchShowings")
	for _, showing := range result.Showings {
		t.Logf("showing: %+v", showing)
	}
}
