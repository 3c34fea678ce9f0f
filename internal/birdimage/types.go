// Package birdimage provides a client for batched species photo lookups
package birdimage

import (
	"fmt"
	"time"
)

// SpeciesKey identifies a species in the photo service by the pair of
// names reported by the observation source.
type SpeciesKey struct {
	ScientificName string
	CommonName     string
}

// Join returns the lookup key the photo service expects. The
// concatenated form is shared with the observation source only by
// convention; naming variants between the two sources are a known
// data-quality risk.
func (k SpeciesKey) Join() string {
	return fmt.Sprintf("%s_%s", k.ScientificName, k.CommonName)
}

// Photo holds the image URLs returned for one species.
type Photo struct {
	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// lookupRequest is the batched request body.
type lookupRequest struct {
	Species []string `json:"species"`
	Fields  []string `json:"fields"`
}

// lookupResponse is the batched response body, keyed by joined species key.
type lookupResponse struct {
	Species map[string]Photo `json:"species"`
}

// Config holds configuration for the photo lookup client
type Config struct {
	BaseURL  string        `json:"base_url"`
	Timeout  time.Duration `json:"timeout"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://birdimage.example.org/api/v1",
		Timeout:  15 * time.Second,
		CacheTTL: 1 * time.Hour, // photo URLs are stable within a session
	}
}
