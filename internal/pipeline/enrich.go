package pipeline

import (
	"context"

	"github.com/tphakala/birdmap-go/internal/birdimage"
	"github.com/tphakala/birdmap-go/internal/cluster"
)

// PhotoProvider is the batched photo lookup dependency, satisfied by
// *birdimage.Client.
type PhotoProvider interface {
	Lookup(ctx context.Context, species []birdimage.SpeciesKey) (map[string]birdimage.Photo, error)
}

// Enrich attaches photo URLs to the species records in clusters using
// one batched lookup over the unique species keys. Enrichment is
// strictly best-effort: any lookup failure is logged and the clusters
// are returned unmodified. The input slice is returned for convenience.
func (o *Orchestrator) Enrich(ctx context.Context, clusters []*cluster.LocationCluster) []*cluster.LocationCluster {
	if o.photos == nil || len(clusters) == 0 {
		return clusters
	}

	var keys []birdimage.SpeciesKey
	seen := make(map[birdimage.SpeciesKey]struct{})
	for _, loc := range clusters {
		for _, record := range loc.Species {
			key := birdimage.SpeciesKey{
				ScientificName: record.ScientificName,
				CommonName:     record.CommonName,
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	photos, err := o.photos.Lookup(ctx, keys)
	if err != nil {
		o.logger.Warn("photo enrichment failed, continuing without photos",
			"species", len(keys),
			"error", err)
		return clusters
	}

	for _, loc := range clusters {
		for _, record := range loc.Species {
			key := birdimage.SpeciesKey{
				ScientificName: record.ScientificName,
				CommonName:     record.CommonName,
			}
			if photo, ok := photos[key.Join()]; ok {
				record.ThumbnailURL = photo.ThumbnailURL
				record.ImageURL = photo.ImageURL
			}
		}
	}

	return clusters
}
