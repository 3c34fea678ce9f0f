// Package conf handles loading and access of BirdMap-Go configuration
package conf

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// RotationType defines the log rotation strategy
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // Path to the log file
	Rotation RotationType // Type of log rotation
	MaxSize  int64        // Max size in bytes for RotationSize
}

// EBirdConfig holds settings for the primary observation source
type EBirdConfig struct {
	APIKey      string        // eBird API key, required for queries
	BaseURL     string        // API base URL
	Timeout     time.Duration // per-request timeout
	CacheTTL    time.Duration // TTL for cached query responses
	RateLimitMS int           // milliseconds between requests
}

// BirdImageConfig holds settings for the photo enrichment source
type BirdImageConfig struct {
	BaseURL string        // API base URL
	Timeout time.Duration // per-request timeout
}

// PipelineConfig holds the fetch coordination policy
type PipelineConfig struct {
	MinMoveKm    float64 // minimum viewport movement before a re-query
	DefaultBack  string  // default day-count window
	DefaultClass string  // default sighting classification
}

// Settings contains all configuration options for the BirdMap-Go application.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string    // name of this BirdMap-Go node
		Log  LogConfig // logging configuration
	}

	EBird     EBirdConfig     // observation source configuration
	BirdImage BirdImageConfig // photo enrichment source configuration
	Pipeline  PipelineConfig  // fetch coordination policy
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
)

// Load reads the configuration into a new Settings instance
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with config paths, env overrides and defaults
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("birdmap")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults plus env cover everything
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// ValidateSettings checks settings for values that cannot work at runtime
func ValidateSettings(settings *Settings) error {
	if settings.Pipeline.MinMoveKm < 0 {
		return fmt.Errorf("pipeline.minmovekm must not be negative, got %f", settings.Pipeline.MinMoveKm)
	}
	if settings.EBird.RateLimitMS < 0 {
		return fmt.Errorf("ebird.ratelimitms must not be negative, got %d", settings.EBird.RateLimitMS)
	}
	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				// Fall back to pure defaults rather than aborting; callers
				// that need a key will fail with a configuration error later.
				settingsMutex.Lock()
				settingsInstance = &Settings{}
				settingsMutex.Unlock()
			}
		}
	})
	return GetSettings()
}
