package showtimes

import (
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_FilterPast(t *testing.T) {
	cutoff := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	got, err := FilterPast([]string{
		"2024-05-01 @ 5:00 PM",
		"2024-05-01 @ 6:00pm",
		"2024-05-01 @ 9:15 pm*",
		"2024-05-02 @ 1:00 PM",
	}, cutoff)
	require.NoError(t, err)

	want := [][]string{{}, {"6:00pm"}, {"9:15pm"}, {"1:00pm"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterPast mismatch (-want +got):\n%s", diff)
	}
}

func TestUnit_FilterPast_Empty(t *testing.T) {
	got, err := FilterPast(nil, testNow)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUnit_FilterPastGrouped(t *testing.T) {
	cutoff := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	got, err := FilterPastGrouped([][]string{
		{"2024-05-01 @ 1:00pm", "2024-05-01 @ 7:00pm", "2024-05-01 @ 9:30pm"},
		{"2024-05-01 @ 2:00pm"},
		{},
	}, cutoff)
	require.NoError(t, err)

	want := [][]string{{"7:00pm", "9:30pm"}, {}, {}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterPastGrouped mismatch (-want +got):\n%s", diff)
	}
}

func TestUnit_FilterPast_BadTokenIsAnError(t *testing.T) {
	_, err := FilterPast([]string{"2024-05-01 @ 7pm", "2024-05-01 @ TBA"}, testNow)
	require.ErrorIs(t, err, ErrUnparseableTime)
}

func TestUnit_FilterShowings(t *testing.T) {
	cutoff := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	got, err := FilterShowings([]internal.Showing{
		{Name: "Matinee Only", Times: []string{"1:00 PM", "3:30 PM"}},
		{Name: "Vertigo", Times: []string{"4:00 PM", "7:00 PM"}, Tags: []string{"35mm"}},
		{Name: "No Times"},
	}, "2024-05-01", cutoff)
	require.NoError(t, err)

	want := []internal.Showing{
		{Name: "Vertigo", Times: []string{"7:00pm"}, Tags: []string{"35mm"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterShowings mismatch (-want +got):\n%s", diff)
	}
}

func TestUnit_FilterShowings_FutureDateKeepsEverything(t *testing.T) {
	got, err := FilterShowings([]internal.Showing{
		{Name: "Vertigo", Times: []string{"11:00 AM", "2pm"}},
	}, "2024-05-04", testNow)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"11:00am", "2pm"}, got[0].Times)
}

func TestUnit_DropEmpty(t *testing.T) {
	got := DropEmpty([]internal.Showing{
		{Name: "A", Times: []string{"1pm"}},
		{Name: "B", Times: []string{}},
		{Name: "C"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
}
