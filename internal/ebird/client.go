package ebird

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tphakala/birdmap-go/internal/errors"
	"github.com/tphakala/birdmap-go/internal/geo"
	"github.com/tphakala/birdmap-go/internal/logging"
)

// Package-level logger specific to ebird service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	// Define log file path relative to working directory
	logFilePath := filepath.Join("logs", "ebird.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	// Initialize the service-specific file logger
	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "ebird", serviceLevelVar)
	if err != nil {
		// Fallback: Log error to standard log and disable service logging
		log.Printf("FATAL: Failed to initialize ebird file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "ebird")
		closeLogger = func() error { return nil }
	}
}

// Client provides methods for querying observations from the eBird API
type Client struct {
	config      Config
	httpClient  *http.Client
	cache       *cache.Cache
	rateLimiter *time.Ticker
	mu          sync.Mutex
	lastRequest time.Time
	debug       bool
	firstCallMu sync.Once

	// Metrics
	metrics struct {
		apiCalls      int64
		cacheHits     int64
		cacheMisses   int64
		apiErrors     int64
		totalDuration time.Duration
		mu            sync.RWMutex
	}
}

// NewClient creates a new eBird API client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("eBird API key is required").
			Category(errors.CategoryConfiguration).
			Component("ebird").
			Build()
	}

	// Use defaults for missing config values
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.RateLimitMS == 0 {
		config.RateLimitMS = DefaultConfig().RateLimitMS
	}

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache:       cache.New(config.CacheTTL, config.CacheTTL*2),
		rateLimiter: time.NewTicker(time.Duration(config.RateLimitMS) * time.Millisecond),
	}

	logger.Info("eBird client initialized",
		"base_url", config.BaseURL,
		"cache_ttl", config.CacheTTL,
		"rate_limit_ms", config.RateLimitMS,
		"api_key_configured", config.APIKey != "")

	return client, nil
}

// SetDebug toggles verbose request/response logging.
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Close cleans up client resources
func (c *Client) Close() {
	c.rateLimiter.Stop()
	logger.Info("Closing eBird client")

	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing eBird logger: %v", err)
		}
	}
}

// GetObservations retrieves geotagged observations around a coordinate.
// The endpoint depends on the query classification: general recent
// sightings or notable (rare) sightings.
func (c *Client) GetObservations(ctx context.Context, q *ObservationQuery) ([]Observation, error) {
	if q == nil {
		return nil, errors.Newf("observation query is required").
			Category(errors.CategoryValidation).
			Component("ebird").
			Build()
	}
	if !geo.IsValidLatLng(q.Lat, q.Lng) {
		return nil, errors.Newf("invalid coordinate: lat=%f lng=%f", q.Lat, q.Lng).
			Category(errors.CategoryValidation).
			Context("lat", q.Lat).
			Context("lng", q.Lng).
			Component("ebird").
			Build()
	}
	if q.DistKm <= 0 || q.DistKm > geo.MaxRadiusKm {
		return nil, errors.Newf("search radius %.1f km outside supported range (0, %.0f]", q.DistKm, geo.MaxRadiusKm).
			Category(errors.CategoryValidation).
			Context("dist_km", q.DistKm).
			Component("ebird").
			Build()
	}

	endpoint := "/data/obs/geo/recent"
	if q.Class == ClassRare {
		endpoint = "/data/obs/geo/recent/notable"
	}

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.4f", q.Lat))
	params.Set("lng", fmt.Sprintf("%.4f", q.Lng))
	// The API caps dist at one decimal place of precision
	params.Set("dist", fmt.Sprintf("%.1f", q.DistKm))
	params.Set("back", fmt.Sprintf("%d", q.Back))

	requestURL := fmt.Sprintf("%s%s?%s", c.config.BaseURL, endpoint, params.Encode())

	cacheKey := fmt.Sprintf("obs:%s", requestURL)
	if cached, found := c.cache.Get(cacheKey); found {
		if observations, ok := cached.([]Observation); ok {
			c.metrics.mu.Lock()
			c.metrics.cacheHits++
			c.metrics.mu.Unlock()

			logger.Debug("eBird observation cache hit",
				"cache_key", cacheKey,
				"records", len(observations))
			return observations, nil
		}
	}

	c.metrics.mu.Lock()
	c.metrics.cacheMisses++
	c.metrics.mu.Unlock()

	// Apply timeout to API request
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var observations []Observation
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, requestURL, nil, &observations); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, observations, cache.DefaultExpiration)

	logger.Debug("eBird observations cached",
		"cache_key", cacheKey,
		"records", len(observations),
		"class", q.Class,
		"back", int(q.Back))

	return observations, nil
}

// doRequest performs an HTTP request with rate limiting and auth
func (c *Client) doRequest(ctx context.Context, method, requestURL string, body io.Reader, result any) error {
	// Rate limiting
	c.mu.Lock()
	select {
	case <-c.rateLimiter.C:
	case <-ctx.Done():
		c.mu.Unlock()
		return ctx.Err()
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	start := time.Now()

	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		c.metrics.mu.Lock()
		c.metrics.apiErrors++
		c.metrics.mu.Unlock()
		return errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("method", method).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}

	req.Header.Set("X-eBirdApiToken", c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.debug {
		logger.Debug("eBird API request",
			"method", method,
			"url", requestURL,
			"has_api_key", c.config.APIKey != "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.mu.Lock()
		c.metrics.apiErrors++
		c.metrics.mu.Unlock()

		logger.Error("eBird API request failed",
			"error", err,
			"method", method,
			"url", requestURL)
		return errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("method", method).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("Failed to read response body",
			"error", err,
			"url", requestURL,
			"status_code", resp.StatusCode)
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Context("status_code", resp.StatusCode).
			Component("ebird").
			Build()
	}

	// Check content type for non-error responses
	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusOK && !strings.Contains(strings.ToLower(contentType), "application/json") {
		responsePreview := string(bodyBytes)
		if len(responsePreview) > 500 {
			responsePreview = responsePreview[:500] + "..."
		}

		logger.Error("eBird API returned non-JSON response",
			"status_code", resp.StatusCode,
			"content_type", contentType,
			"url", requestURL,
			"response_preview", responsePreview)

		return errors.Newf("eBird API returned non-JSON response (Content-Type: %s)", contentType).
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Context("content_type", contentType).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}

	if resp.StatusCode >= 400 {
		c.metrics.mu.Lock()
		c.metrics.apiErrors++
		c.metrics.mu.Unlock()

		var apiErr Error
		if err := json.Unmarshal(bodyBytes, &apiErr); err != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				logger.Error("eBird API authentication failed",
					"status_code", resp.StatusCode,
					"url", requestURL,
					"has_api_key", c.config.APIKey != "",
					"message", "Check your eBird API key in the configuration")
			} else {
				logger.Error("eBird API error",
					"status_code", resp.StatusCode,
					"url", requestURL,
					"response_body", string(bodyBytes))
			}

			return errors.Newf("eBird API error (status %d): %s", resp.StatusCode, string(bodyBytes)).
				Category(getErrorCategory(resp.StatusCode)).
				Context("status_code", resp.StatusCode).
				Context("url", requestURL).
				Component("ebird").
				Build()
		}
		apiErr.Status = resp.StatusCode

		logger.Warn("eBird API error response",
			"status_code", resp.StatusCode,
			"error_title", apiErr.Title,
			"error_detail", apiErr.Detail,
			"url", requestURL)

		return errors.Newf("eBird API error: %s", apiErr.Detail).
			Category(getErrorCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("error_title", apiErr.Title).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			responsePreview := string(bodyBytes)
			if len(responsePreview) > 500 {
				responsePreview = responsePreview[:500] + "..."
			}

			logger.Error("Failed to parse eBird API response",
				"error", err,
				"url", requestURL,
				"response_size", len(bodyBytes),
				"response_preview", responsePreview)
			return errors.Newf("failed to parse response: %w", err).
				Category(errors.CategoryFileParsing).
				Context("url", requestURL).
				Context("response_size", len(bodyBytes)).
				Component("ebird").
				Build()
		}
	}

	duration := time.Since(start)

	if resp.StatusCode == http.StatusOK {
		// Log first successful API call to confirm authentication
		c.firstCallMu.Do(func() {
			logger.Info("eBird API authentication successful",
				"first_successful_request", requestURL)
		})

		if c.debug {
			logger.Debug("eBird API response",
				"status_code", resp.StatusCode,
				"url", requestURL,
				"duration_ms", duration.Milliseconds(),
				"response_size", len(bodyBytes))
		} else {
			logger.Info("eBird API request successful",
				"url", requestURL,
				"duration_ms", duration.Milliseconds())
		}
	}

	c.metrics.mu.Lock()
	c.metrics.totalDuration += duration
	c.metrics.mu.Unlock()

	return nil
}

// doRequestWithRetry wraps doRequest with retry logic for transient failures
func (c *Client) doRequestWithRetry(ctx context.Context, method, requestURL string, body io.Reader, result any) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if body != nil && attempt > 0 {
			// Body was already consumed, we can't retry with body
			logger.Debug("Retry attempted but request body cannot be re-read",
				"attempt", attempt+1,
				"url", requestURL)
			return lastErr
		}

		err := c.doRequest(ctx, method, requestURL, body, result)
		if err == nil {
			return nil
		}

		// Check if error is retryable
		var enhancedErr *errors.EnhancedError
		if errors.As(err, &enhancedErr) {
			// Don't retry configuration, not found or validation errors
			if enhancedErr.Category == errors.CategoryConfiguration ||
				enhancedErr.Category == errors.CategoryNotFound ||
				enhancedErr.Category == errors.CategoryValidation {
				return err
			}

			if statusCode, ok := enhancedErr.Context["status_code"].(int); ok {
				// Don't retry client errors (except 429 which is handled by rate limiter)
				if statusCode >= 400 && statusCode < 500 && statusCode != 429 {
					return err
				}
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}

		delay := time.Duration(attempt+1) * 500 * time.Millisecond
		if attempt < maxRetries-1 {
			logger.Warn("eBird API request failed, retrying",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay_ms", delay.Milliseconds(),
				"url", requestURL,
				"error", err.Error())

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// ClearCache clears all cached query responses
func (c *Client) ClearCache() {
	c.cache.Flush()
	logger.Info("eBird cache cleared")
}

// Metrics represents eBird client performance metrics
type Metrics struct {
	APICalls      int64         `json:"api_calls"`
	CacheHits     int64         `json:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"`
	APIErrors     int64         `json:"api_errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// GetMetrics returns current client metrics
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()

	metrics := Metrics{
		APICalls:      c.metrics.apiCalls,
		CacheHits:     c.metrics.cacheHits,
		CacheMisses:   c.metrics.cacheMisses,
		APIErrors:     c.metrics.apiErrors,
		TotalDuration: c.metrics.totalDuration,
	}

	if metrics.APICalls > 0 {
		metrics.AvgDuration = time.Duration(int64(metrics.TotalDuration) / metrics.APICalls)
	}

	return metrics
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}
