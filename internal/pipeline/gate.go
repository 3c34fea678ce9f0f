// Package pipeline coordinates viewport-driven observation fetching and enrichment
package pipeline

import (
	"github.com/tphakala/birdmap-go/internal/ebird"
	"github.com/tphakala/birdmap-go/internal/geo"
)

// DefaultMinMoveKm is the minimum viewport movement, measured from the
// center of the last successful fetch, before a re-query is warranted.
const DefaultMinMoveKm = 3.0

// QueryParams are the user-selectable query parameters, immutable per
// fetch cycle.
type QueryParams struct {
	Back  ebird.BackWindow
	Class ebird.Classification
}

// FetchState records the center and parameters of the last successful
// fetch. It is written only by the orchestrator, after a cycle succeeds.
type FetchState struct {
	Center geo.Point
	Params QueryParams
}

// Gate decides whether a viewport or parameter change warrants a new
// remote query. Parameter changes always do; movement must reach
// MinMoveKm from the last successful fetch's center.
type Gate struct {
	MinMoveKm float64
}

// NewGate returns a Gate with the given movement threshold, falling
// back to DefaultMinMoveKm for non-positive values.
func NewGate(minMoveKm float64) Gate {
	if minMoveKm <= 0 {
		minMoveKm = DefaultMinMoveKm
	}
	return Gate{MinMoveKm: minMoveKm}
}

// ShouldFetch reports whether a query should be issued for the given
// center and params. A nil prev means no fetch has succeeded yet and
// always fetches.
func (g Gate) ShouldFetch(center geo.Point, params QueryParams, prev *FetchState) bool {
	if prev == nil {
		return true
	}
	if params != prev.Params {
		return true
	}
	return geo.DistanceBetween(center, prev.Center) >= g.MinMoveKm
}
