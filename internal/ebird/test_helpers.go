package ebird

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockResponse represents a mocked HTTP response
type mockResponse struct {
	status      int
	body        string
	contentType string
}

// setupTestClient creates a test client pointed at the given server
func setupTestClient(tb testing.TB, server *httptest.Server) *Client {
	tb.Helper()

	config := Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
		CacheTTL:    1 * time.Hour,
		RateLimitMS: 1, // Fast for tests
	}

	client, err := NewClient(config)
	require.NoError(tb, err)

	if tt, ok := tb.(*testing.T); ok {
		tt.Cleanup(func() {
			client.Close()
		})
	}

	return client
}

// setupMockServer creates a mock server with predefined responses keyed
// by path plus raw query
func setupMockServer(tb testing.TB, responses map[string]mockResponse) *httptest.Server {
	tb.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check API key
		if apiKey := r.Header.Get("X-eBirdApiToken"); apiKey == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"title": "Unauthorized", "status": 401, "detail": "Missing API key"}`))
			return
		}

		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}

		if response, ok := responses[key]; ok {
			if response.contentType != "" {
				w.Header().Set("Content-Type", response.contentType)
			} else {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(response.status)
			_, _ = w.Write([]byte(response.body))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title": "Not Found", "status": 404, "detail": "Endpoint not found"}`))
	}))

	if tt, ok := tb.(*testing.T); ok {
		tt.Cleanup(server.Close)
	}

	return server
}

// sampleObservationsJSON is a two-record response at one location.
const sampleObservationsJSON = `[
  {"sciName": "Cyanocitta stelleri", "comName": "Steller's Jay", "speciesCode": "stejay",
   "lat": 36.9741, "lng": -122.0308, "obsDt": "2024-05-01 08:12", "obsValid": true,
   "subId": "S101", "locName": "Natural Bridges SB", "howMany": 2},
  {"sciName": "Calypte anna", "comName": "Anna's Hummingbird", "speciesCode": "annhum",
   "lat": 36.9741, "lng": -122.0308, "obsDt": "2024-05-01 07:55", "obsValid": true,
   "subId": "S102", "locName": "Natural Bridges SB", "howMany": 1}
]`
