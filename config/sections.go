package config

import (
	"fmt"
	"time"
)

// ForecastConfig tunes the forecast engine.
type ForecastConfig struct {
	// IntervalMinutes spaces forecast points.
	IntervalMinutes int `json:"interval_minutes"`
	// WindowMinutes is the forward span each forecast covers.
	WindowMinutes int `json:"window_minutes"`
	// MinConfidence drops points below this score from responses. Zero keeps all.
	MinConfidence int `json:"min_confidence"`
	// DisableCache forces fresh computation on every request.
	DisableCache bool `json:"disable_cache"`
}

// SetDefaults applies sane defaults.
func (c *ForecastConfig) SetDefaults() {
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 15
	}
	if c.WindowMinutes == 0 {
		c.WindowMinutes = 120
	}
}

// Validate checks mandatory fields.
func (c ForecastConfig) Validate() error {
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("interval_minutes must be positive")
	}
	if c.WindowMinutes < c.IntervalMinutes {
		return fmt.Errorf("window_minutes must be at least interval_minutes")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be within [0,100]")
	}
	return nil
}

// Interval returns the point spacing as a duration.
func (c ForecastConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Window returns the forecast span as a duration.
func (c ForecastConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// CacheConfig selects the prediction cache backend.
type CacheConfig struct {
	// Backend selects the cache store type: "memory" or "sqlite".
	Backend string `json:"backend"`
	// Path is the sqlite file location.
	Path string `json:"path"`
	// PruneIntervalMinutes spaces background expired-entry sweeps.
	PruneIntervalMinutes int `json:"prune_interval_minutes"`
}

// SetDefaults applies sane defaults.
func (c *CacheConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "forecast_cache.db"
	}
	if c.PruneIntervalMinutes == 0 {
		c.PruneIntervalMinutes = 5
	}
}

// Validate checks mandatory fields.
func (c CacheConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("path is required for the sqlite backend")
	}
	return nil
}

// PruneInterval returns the sweep spacing as a duration.
func (c CacheConfig) PruneInterval() time.Duration {
	return time.Duration(c.PruneIntervalMinutes) * time.Minute
}

// ObservationsConfig tunes the in-memory observation store.
type ObservationsConfig struct {
	// RetentionDays bounds how far back readings are kept.
	RetentionDays int `json:"retention_days"`
}

// SetDefaults applies sane defaults.
func (c *ObservationsConfig) SetDefaults() {
	if c.RetentionDays == 0 {
		c.RetentionDays = 45
	}
}

// Retention returns the sliding window as a duration.
func (c ObservationsConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// LoggingConfig selects the global log level.
type LoggingConfig struct {
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown level %s", c.Level)
}

// SimulatorConfig seeds the synthetic data generator.
type SimulatorConfig struct {
	// Seed fixes the random source; zero derives one from the clock.
	Seed int64 `json:"seed"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Port int `json:"port"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
}
