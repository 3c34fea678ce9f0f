package birdimage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/patrickmn/go-cache"
	"github.com/tphakala/birdmap-go/internal/errors"
	"github.com/tphakala/birdmap-go/internal/logging"
)

// Package-level logger specific to birdimage service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "birdimage.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "birdimage", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize birdimage file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "birdimage")
		closeLogger = func() error { return nil }
	}
}

// lookupFields are the photo fields requested for every batch.
var lookupFields = []string{"imageUrl", "thumbnailUrl"}

// Client provides batched species photo lookups against the photo service.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient creates a new photo lookup client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache: cache.New(config.CacheTTL, config.CacheTTL*2),
	}

	logger.Info("birdimage client initialized",
		"base_url", config.BaseURL,
		"cache_ttl", config.CacheTTL)

	return client
}

// Close cleans up client resources
func (c *Client) Close() {
	logger.Info("Closing birdimage client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing birdimage logger: %v", err)
		}
	}
}

// Lookup issues one batched photo request for the given species and
// returns photos keyed by the joined species key. Species already in
// the cache are served from it and excluded from the request; an empty
// remaining batch performs no network call.
func (c *Client) Lookup(ctx context.Context, species []SpeciesKey) (map[string]Photo, error) {
	result := make(map[string]Photo, len(species))

	var missing []string
	seen := make(map[string]struct{}, len(species))
	for _, key := range species {
		joined := key.Join()
		if _, dup := seen[joined]; dup {
			continue
		}
		seen[joined] = struct{}{}

		if cached, found := c.cache.Get(joined); found {
			if photo, ok := cached.(Photo); ok {
				result[joined] = photo
				continue
			}
		}
		missing = append(missing, joined)
	}

	if len(missing) == 0 {
		logger.Debug("photo lookup fully served from cache", "species", len(result))
		return result, nil
	}

	fetched, err := c.doLookup(ctx, missing)
	if err != nil {
		return nil, err
	}

	for joined, photo := range fetched {
		c.cache.Set(joined, photo, cache.DefaultExpiration)
		result[joined] = photo
	}

	logger.Debug("photo lookup complete",
		"requested", len(missing),
		"returned", len(fetched),
		"cached", len(result)-len(fetched))

	return result, nil
}

// doLookup performs the batched POST request against the photo service
func (c *Client) doLookup(ctx context.Context, species []string) (map[string]Photo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(lookupRequest{
		Species: species,
		Fields:  lookupFields,
	})
	if err != nil {
		return nil, errors.Newf("failed to encode photo lookup request: %w", err).
			Category(errors.CategoryImageFetch).
			Component("birdimage").
			Build()
	}

	requestURL := c.config.BaseURL + "/species/photos"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Component("birdimage").
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("photo lookup request failed",
			"error", err,
			"url", requestURL,
			"batch_size", len(species))
		return nil, errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Component("birdimage").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Context("status_code", resp.StatusCode).
			Component("birdimage").
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("photo service error response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"batch_size", len(species))
		return nil, errors.Newf("photo service error (status %d)", resp.StatusCode).
			Category(errors.CategoryImageFetch).
			Context("status_code", resp.StatusCode).
			Context("url", requestURL).
			Component("birdimage").
			Build()
	}

	var parsed lookupResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		logger.Error("failed to parse photo service response",
			"error", err,
			"url", requestURL,
			"response_size", len(bodyBytes))
		return nil, errors.Newf("failed to parse photo service response: %w", err).
			Category(errors.CategoryFileParsing).
			Context("url", requestURL).
			Component("birdimage").
			Build()
	}

	if parsed.Species == nil {
		return map[string]Photo{}, nil
	}
	return parsed.Species, nil
}
