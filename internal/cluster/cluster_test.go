package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdmap-go/internal/ebird"
)

func obs(comName, subID string, lat, lng float64, valid bool) ebird.Observation {
	return ebird.Observation{
		ScientificName: "Sci " + comName,
		CommonName:     comName,
		SpeciesCode:    "code-" + comName,
		Latitude:       lat,
		Longitude:      lng,
		ObsDt:          "2024-05-01 08:12",
		ObsValid:       valid,
		SubID:          subID,
	}
}

func TestNormalize_MergesSameSpeciesAtSameLocation(t *testing.T) {
	t.Parallel()

	input := []ebird.Observation{
		obs("Steller's Jay", "S101", 36.9741, -122.0308, true),
		obs("Steller's Jay", "S102", 36.9741, -122.0308, true),
	}
	input[1].ObsDt = "2024-04-30 17:40"

	clusters := Normalize(input)

	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Species, 1)

	record := clusters[0].Species[0]
	assert.Equal(t, []string{"S101", "S102"}, record.SubIDs,
		"submission ids must be collected in source order")
	assert.Equal(t, "2024-05-01 08:12", record.ObsDt,
		"merged record keeps the first (newest) observation's timestamp")
	assert.Equal(t, "Sci Steller's Jay", record.ScientificName)
}

func TestNormalize_ExcludesInvalidObservations(t *testing.T) {
	t.Parallel()

	input := []ebird.Observation{
		obs("Steller's Jay", "S101", 36.9741, -122.0308, true),
		obs("Anna's Hummingbird", "S103", 36.9741, -122.0308, false),
	}

	clusters := Normalize(input)

	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Species, 1)
	assert.Equal(t, "Steller's Jay", clusters[0].Species[0].CommonName)
}

func TestNormalize_SkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	missingName := obs("", "S104", 36.9741, -122.0308, true)
	missingSub := obs("Steller's Jay", "", 36.9741, -122.0308, true)

	clusters := Normalize([]ebird.Observation{missingName, missingSub})

	assert.Empty(t, clusters)
}

func TestNormalize_SeparatesLocationsByExactCoordinate(t *testing.T) {
	t.Parallel()

	input := []ebird.Observation{
		obs("Steller's Jay", "S101", 36.9741, -122.0308, true),
		obs("Steller's Jay", "S102", 36.9742, -122.0308, true),
	}

	clusters := Normalize(input)

	require.Len(t, clusters, 2, "no rounding or fuzzing beyond source precision")
	for _, c := range clusters {
		require.Len(t, c.Species, 1)
		assert.Len(t, c.Species[0].SubIDs, 1)
	}
}

func TestNormalize_KeepsDuplicateSubmissionIDs(t *testing.T) {
	t.Parallel()

	// Two distinct raw records carrying the same submission id are not
	// deduplicated; natural grouping is the only merge applied.
	input := []ebird.Observation{
		obs("Steller's Jay", "S101", 36.9741, -122.0308, true),
		obs("Steller's Jay", "S101", 36.9741, -122.0308, true),
	}

	clusters := Normalize(input)

	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"S101", "S101"}, clusters[0].Species[0].SubIDs)
}

func TestNormalize_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]ebird.Observation{}))
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	input := []ebird.Observation{
		obs("Steller's Jay", "S101", 36.9741, -122.0308, true),
		obs("Anna's Hummingbird", "S102", 36.9741, -122.0308, true),
		obs("Steller's Jay", "S103", 36.9800, -122.0200, true),
		obs("Wrentit", "S104", 36.9800, -122.0200, false),
	}

	first := Normalize(input)
	second := Normalize(input)

	assert.Equal(t, first, second,
		"re-running normalization on unchanged input must produce an identical cluster set")
}
