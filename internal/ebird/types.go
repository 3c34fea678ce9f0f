// Package ebird provides a client for querying geotagged observations from the eBird API v2
package ebird

import (
	"fmt"
	"time"
)

// Observation represents a single raw observation record as returned by
// the observation endpoints. One record per (species, checklist) pair.
type Observation struct {
	ScientificName string  `json:"sciName"`
	CommonName     string  `json:"comName"`
	SpeciesCode    string  `json:"speciesCode"`
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lng"`
	ObsDt          string  `json:"obsDt"`   // observation timestamp, "2006-01-02 15:04" local
	ObsValid       bool    `json:"obsValid"`
	SubID          string  `json:"subId"` // checklist submission identifier
	LocationName   string  `json:"locName,omitempty"`
	HowMany        int     `json:"howMany,omitempty"`
}

// Classification selects which observation endpoint is queried.
type Classification string

const (
	ClassRecent Classification = "recent" // general recent sightings
	ClassRare   Classification = "rare"   // notable/rare sightings
)

// ParseClassification validates a classification string.
func ParseClassification(s string) (Classification, error) {
	switch Classification(s) {
	case ClassRecent, ClassRare:
		return Classification(s), nil
	default:
		return "", fmt.Errorf("invalid classification %q, must be one of: recent, rare", s)
	}
}

// BackWindow is the number of days back to search for observations.
// Only the enumerated values are accepted by the remote source.
type BackWindow int

// Supported back windows in days.
const (
	Back1  BackWindow = 1
	Back3  BackWindow = 3
	Back7  BackWindow = 7
	Back14 BackWindow = 14
	Back30 BackWindow = 30
)

// ParseBackWindow validates a day-count string against the supported set.
func ParseBackWindow(s string) (BackWindow, error) {
	switch s {
	case "1":
		return Back1, nil
	case "3":
		return Back3, nil
	case "7":
		return Back7, nil
	case "14":
		return Back14, nil
	case "30":
		return Back30, nil
	default:
		return 0, fmt.Errorf("invalid back window %q, must be one of: 1, 3, 7, 14, 30", s)
	}
}

// ObservationQuery describes one geographic observation query.
type ObservationQuery struct {
	Lat    float64
	Lng    float64
	DistKm float64 // search radius in kilometers, capped at 25 by the API
	Back   BackWindow
	Class  Classification
}

// Config holds configuration for the eBird client
type Config struct {
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	Timeout     time.Duration `json:"timeout"`
	CacheTTL    time.Duration `json:"cache_ttl"`
	RateLimitMS int           `json:"rate_limit_ms"` // Milliseconds between requests
}

// Error represents an eBird API error response
type Error struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return e.Detail
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.ebird.org/v2",
		Timeout:     30 * time.Second,
		CacheTTL:    5 * time.Minute, // observation data is short-lived
		RateLimitMS: 100,             // 10 requests per second max
	}
}
