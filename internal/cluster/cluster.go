// Package cluster groups raw observations into per-location, per-species records
package cluster

import (
	"fmt"
	"log/slog"

	"github.com/tphakala/birdmap-go/internal/ebird"
	"github.com/tphakala/birdmap-go/internal/logging"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("cluster")
	if logger == nil {
		logger = slog.Default().With("service", "cluster")
	}
}

// SpeciesRecord merges all observations of one species (by common name)
// at one location. SubIDs preserves the source order of contributing
// checklist submissions. Photo URLs are filled in by enrichment and are
// empty until then.
type SpeciesRecord struct {
	ScientificName string   `json:"sciName"`
	CommonName     string   `json:"comName"`
	SpeciesCode    string   `json:"speciesCode"`
	ObsDt          string   `json:"obsDt"`
	SubIDs         []string `json:"subIds"`
	ThumbnailURL   string   `json:"thumbnailUrl,omitempty"`
	ImageURL       string   `json:"imageUrl,omitempty"`
}

// LocationCluster groups all species records sharing one exact coordinate.
type LocationCluster struct {
	Lat     float64          `json:"lat"`
	Lng     float64          `json:"lng"`
	Species []*SpeciesRecord `json:"species"`
}

// Normalize filters, groups and merges raw observations into location
// clusters. Observations with obsValid false are discarded, as are
// records missing a common name or submission id (data-quality skips,
// not errors). Grouping is by exact (lat,lng) equality, then by common
// name within a location. Each merged record keeps the identity and
// timestamp of the first contributing observation in source order; the
// source returns newest first, so that is the most recent submission.
// Cluster and species order follow first appearance in the input.
func Normalize(observations []ebird.Observation) []*LocationCluster {
	var clusters []*LocationCluster
	byLocation := make(map[string]*LocationCluster)
	bySpecies := make(map[string]*SpeciesRecord)

	skipped := 0
	for i := range observations {
		obs := &observations[i]

		if !obs.ObsValid {
			continue
		}
		if obs.CommonName == "" || obs.SubID == "" {
			skipped++
			continue
		}

		locKey := locationKey(obs.Latitude, obs.Longitude)
		loc, ok := byLocation[locKey]
		if !ok {
			loc = &LocationCluster{
				Lat: obs.Latitude,
				Lng: obs.Longitude,
			}
			byLocation[locKey] = loc
			clusters = append(clusters, loc)
		}

		speciesKey := locKey + "|" + obs.CommonName
		record, ok := bySpecies[speciesKey]
		if !ok {
			record = &SpeciesRecord{
				ScientificName: obs.ScientificName,
				CommonName:     obs.CommonName,
				SpeciesCode:    obs.SpeciesCode,
				ObsDt:          obs.ObsDt,
			}
			bySpecies[speciesKey] = record
			loc.Species = append(loc.Species, record)
		}
		record.SubIDs = append(record.SubIDs, obs.SubID)
	}

	if skipped > 0 {
		logger.Debug("skipped malformed observations", "count", skipped)
	}

	return clusters
}

// locationKey builds the exact-coordinate grouping key. Formatting with
// %v keeps whatever precision the source provided.
func locationKey(lat, lng float64) string {
	return fmt.Sprintf("%v,%v", lat, lng)
}
