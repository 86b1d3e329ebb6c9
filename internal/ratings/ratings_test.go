package ratings

import (
	"context"
	"errors"
	"testing"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	records map[string]internal.RatingRecord
	err     error
	calls   map[string]int
}

func (p *countingProvider) Ratings(_ context.Context, name string) (internal.RatingRecord, error) {
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[name]++
	if p.err != nil {
		return nil, p.err
	}
	return p.records[name], nil
}

func (p *countingProvider) total() int {
	var n int
	for _, c := range p.calls {
		n += c
	}
	return n
}

func TestUnit_ParseScore(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"85%", 0.85},
		{"100%", 1},
		{"7/10", 0.7},
		{"7.8/10", 0.78},
		{"76/100", 0.76},
		{" 0% ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseScore(tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
	for _, bad := range []string{"N/A", "", "7.8", "5/0"} {
		t.Run("bad "+bad, func(t *testing.T) {
			_, err := ParseScore(bad)
			require.ErrorIs(t, err, ErrBadScore)
		})
	}
}

func TestUnit_Resolve(t *testing.T) {
	assert.InDelta(t, 0.91, Resolve(internal.RatingRecord{IMDb: 0.8, RottenTomatoes: 0.91}), 1e-9)
	assert.InDelta(t, 0.8, Resolve(internal.RatingRecord{IMDb: 0.8, Metacritic: 0.6}), 1e-9)
	assert.InDelta(t, 0.72, Resolve(internal.RatingRecord{TheMovieDatabase: 0.72}), 1e-9)
	assert.InDelta(t, 0.0, Resolve(internal.RatingRecord{RottenTomatoes: 0}), 1e-9)
	assert.Equal(t, Unknown, Resolve(internal.RatingRecord{Metacritic: 0.6}))
	assert.Equal(t, Unknown, Resolve(nil))
}

func TestUnit_GetRatings_LooksUpEachNameOnce(t *testing.T) {
	p := &countingProvider{records: map[string]internal.RatingRecord{
		"Vertigo": {RottenTomatoes: 0.93},
		"Obscure": {},
	}}
	scores, cache, err := GetRatings(t.Context(), p, []string{"Vertigo", "Obscure"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.93, Unknown}, scores)

	scores, cache, err = GetRatings(t.Context(), p, []string{"Vertigo", "VERTIGO"}, cache)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.93, 0.93}, scores)
	assert.Equal(t, 1, p.calls["Vertigo"])
	assert.Equal(t, 2, p.total())
	assert.Len(t, cache, 2)
}

func TestUnit_GetRatings_ProviderErrorStopsBatch(t *testing.T) {
	p := &countingProvider{err: ErrUnauthorized}
	_, cache, err := GetRatings(t.Context(), p, []string{"A", "B"}, Cache{})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, cache)
	assert.Equal(t, 1, p.total())
}

func TestUnit_Chain(t *testing.T) {
	primary := &countingProvider{records: map[string]internal.RatingRecord{"A": {IMDb: 0.7}}}
	extra := &countingProvider{records: map[string]internal.RatingRecord{"A": {IMDb: 0.1, TheMovieDatabase: 0.65}}}
	broken := &countingProvider{err: errors.New("boom")}

	record, err := Chain(primary, broken, extra).Ratings(t.Context(), "A")
	require.NoError(t, err)
	assert.Equal(t, internal.RatingRecord{IMDb: 0.7, TheMovieDatabase: 0.65}, record)

	_, err = Chain(broken, primary).Ratings(t.Context(), "A")
	require.Error(t, err)

	assert.Same(t, primary, Chain(primary).(*countingProvider))
}
