package scraper

import (
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Cached_MemoizesPerTheaterAndDate(t *testing.T) {
	inner := &stubScraper{name: "metrograph", result: found("Cached")}
	s := Cached(4, time.Minute)(inner)
	assert.Equal(t, "metrograph", s.Descriptor())

	req := internal.ShowingsRequest{Theater: "metrograph", Date: goldenDate}
	first, err := s.FetchShowings(t.Context(), req)
	require.NoError(t, err)
	second, err := s.FetchShowings(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = s.FetchShowings(t.Context(), internal.ShowingsRequest{Theater: "metrograph", Date: "2024-05-02"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestUnit_Cached_ReturnsCopies(t *testing.T) {
	inner := &stubScraper{name: "metrograph", result: found("Original")}
	s := Cached(4, time.Minute)(inner)
	req := internal.ShowingsRequest{Theater: "metrograph", Date: goldenDate}

	first, err := s.FetchShowings(t.Context(), req)
	require.NoError(t, err)
	first.Showings[0].Times[0] = "mutated"

	second, err := s.FetchShowings(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "7:00pm", second.Showings[0].Times[0])
}

func TestUnit_Cached_KeepsZone(t *testing.T) {
	inner := &stubScraper{name: "metrograph", result: found("Zoned").In(easternTZ)}
	s := Cached(4, time.Minute)(inner)
	req := internal.ShowingsRequest{Theater: "metrograph", Date: goldenDate}

	_, err := s.FetchShowings(t.Context(), req)
	require.NoError(t, err)
	cached, err := s.FetchShowings(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, easternTZ, cached.Location)
}

func TestUnit_Cached_DoesNotCacheErrors(t *testing.T) {
	inner := &stubScraper{name: "broken", err: errSiteDown}
	s := Cached(4, time.Minute)(inner)
	req := internal.ShowingsRequest{Theater: "videology", Date: goldenDate}

	_, err := s.FetchShowings(t.Context(), req)
	require.ErrorIs(t, err, errSiteDown)
	_, err = s.FetchShowings(t.Context(), req)
	require.ErrorIs(t, err, errSiteDown)
	assert.Equal(t, 2, inner.calls)
}

func TestUnit_Cached_NilInner(t *testing.T) {
	assert.Nil(t, Cached(4, time.Minute)(nil))
}
