package birdimage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://photos.test"

func setupTestClient(t *testing.T) *Client {
	t.Helper()

	client := NewClient(Config{
		BaseURL:  testBaseURL,
		Timeout:  2 * time.Second,
		CacheTTL: 1 * time.Hour,
	})
	t.Cleanup(client.Close)

	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return client
}

func TestLookup_Success(t *testing.T) {
	client := setupTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/species/photos",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)

			var parsed lookupRequest
			require.NoError(t, json.Unmarshal(body, &parsed))
			assert.ElementsMatch(t, []string{"imageUrl", "thumbnailUrl"}, parsed.Fields)
			assert.Contains(t, parsed.Species, "Cyanocitta stelleri_Steller's Jay")

			return httpmock.NewStringResponse(http.StatusOK, `{
				"species": {
					"Cyanocitta stelleri_Steller's Jay": {
						"imageUrl": "https://photos.test/stejay.jpg",
						"thumbnailUrl": "https://photos.test/stejay_t.jpg"
					}
				}
			}`), nil
		})

	photos, err := client.Lookup(context.Background(), []SpeciesKey{
		{ScientificName: "Cyanocitta stelleri", CommonName: "Steller's Jay"},
	})

	require.NoError(t, err)
	require.Len(t, photos, 1)
	photo := photos["Cyanocitta stelleri_Steller's Jay"]
	assert.Equal(t, "https://photos.test/stejay.jpg", photo.ImageURL)
	assert.Equal(t, "https://photos.test/stejay_t.jpg", photo.ThumbnailURL)
}

func TestLookup_ServerError(t *testing.T) {
	client := setupTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/species/photos",
		httpmock.NewStringResponder(http.StatusInternalServerError, `oops`))

	_, err := client.Lookup(context.Background(), []SpeciesKey{
		{ScientificName: "Calypte anna", CommonName: "Anna's Hummingbird"},
	})

	require.Error(t, err)
}

func TestLookup_MalformedResponse(t *testing.T) {
	client := setupTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/species/photos",
		httpmock.NewStringResponder(http.StatusOK, `not json at all`))

	_, err := client.Lookup(context.Background(), []SpeciesKey{
		{ScientificName: "Calypte anna", CommonName: "Anna's Hummingbird"},
	})

	require.Error(t, err)
}

func TestLookup_CachesSpecies(t *testing.T) {
	client := setupTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/species/photos",
		httpmock.NewStringResponder(http.StatusOK, `{
			"species": {
				"Calypte anna_Anna's Hummingbird": {
					"imageUrl": "https://photos.test/annhum.jpg",
					"thumbnailUrl": "https://photos.test/annhum_t.jpg"
				}
			}
		}`))

	keys := []SpeciesKey{{ScientificName: "Calypte anna", CommonName: "Anna's Hummingbird"}}

	_, err := client.Lookup(context.Background(), keys)
	require.NoError(t, err)

	photos, err := client.Lookup(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, photos, 1)

	assert.Equal(t, 1, httpmock.GetTotalCallCount(),
		"second lookup should be served from cache")
}

func TestLookup_EmptyBatchSkipsRequest(t *testing.T) {
	client := setupTestClient(t)

	photos, err := client.Lookup(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, photos)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestSpeciesKey_Join(t *testing.T) {
	t.Parallel()

	key := SpeciesKey{ScientificName: "Cyanocitta stelleri", CommonName: "Steller's Jay"}
	assert.Equal(t, "Cyanocitta stelleri_Steller's Jay", key.Join())
}
