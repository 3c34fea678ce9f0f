package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tphakala/birdmap-go/internal/ebird"
	"github.com/tphakala/birdmap-go/internal/geo"
)

func TestGate_FirstLoadAlwaysFetches(t *testing.T) {
	t.Parallel()

	gate := NewGate(3)
	params := QueryParams{Back: ebird.Back7, Class: ebird.ClassRecent}

	assert.True(t, gate.ShouldFetch(geo.Point{Lat: 36.97, Lng: -122.03}, params, nil))
}

func TestGate_MovementThreshold(t *testing.T) {
	t.Parallel()

	gate := NewGate(3)
	params := QueryParams{Back: ebird.Back7, Class: ebird.ClassRecent}
	prev := &FetchState{
		Center: geo.Point{Lat: 36.97, Lng: -122.03},
		Params: params,
	}

	// Roughly 1 km north of the previous center
	oneKmAway := geo.Point{Lat: 36.979, Lng: -122.03}
	assert.Less(t, geo.DistanceBetween(prev.Center, oneKmAway), 3.0)
	assert.False(t, gate.ShouldFetch(oneKmAway, params, prev),
		"movement below the threshold must be suppressed")

	// Roughly 5 km north
	fiveKmAway := geo.Point{Lat: 37.015, Lng: -122.03}
	assert.Greater(t, geo.DistanceBetween(prev.Center, fiveKmAway), 3.0)
	assert.True(t, gate.ShouldFetch(fiveKmAway, params, prev))
}

func TestGate_ParamChangeOverridesDistance(t *testing.T) {
	t.Parallel()

	gate := NewGate(3)
	prev := &FetchState{
		Center: geo.Point{Lat: 36.97, Lng: -122.03},
		Params: QueryParams{Back: ebird.Back7, Class: ebird.ClassRecent},
	}

	cases := []struct {
		name   string
		params QueryParams
		want   bool
	}{
		{"identical params, identical center", QueryParams{Back: ebird.Back7, Class: ebird.ClassRecent}, false},
		{"classification changed", QueryParams{Back: ebird.Back7, Class: ebird.ClassRare}, true},
		{"back window changed", QueryParams{Back: ebird.Back30, Class: ebird.ClassRecent}, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := gate.ShouldFetch(prev.Center, tc.params, prev)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewGate_DefaultThreshold(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, DefaultMinMoveKm, NewGate(0).MinMoveKm, 1e-9)
	assert.InDelta(t, DefaultMinMoveKm, NewGate(-1).MinMoveKm, 1e-9)
	assert.InDelta(t, 10.0, NewGate(10).MinMoveKm, 1e-9)
}
