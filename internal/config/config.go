// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

// Package config loads and validates application configuration using
// Koanf v2 with layered sources: built-in defaults, an optional YAML
// config file, and environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	BGG      BGGConfig      `koanf:"bgg"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" or "" opens an in-memory
	// database (used by tests).
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads limits DuckDB worker threads. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// BGGConfig holds BoardGameGeek API client settings.
type BGGConfig struct {
	// BaseURL is the BGG site root; the client appends /xmlapi2 paths.
	BaseURL string `koanf:"base_url"`

	// APIToken is an optional bearer credential. BGG serves anonymous
	// requests with stricter throttling, so absence is allowed but logged.
	APIToken string `koanf:"api_token"`

	// MinRequestInterval is the minimum spacing between any two requests
	// issued through one client instance, shared across all callers.
	MinRequestInterval time.Duration `koanf:"min_request_interval"`

	// MaxAttempts bounds fetch retries for queued (HTTP 202) and transient
	// failures.
	MaxAttempts int `koanf:"max_attempts"`

	// RetryDelay is the fixed delay between retry attempts.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// OwnedOnly restricts collection fetches to owned games.
	OwnedOnly bool `koanf:"owned_only"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds REST API behavior settings.
type APIConfig struct {
	DefaultPageSize   int           `koanf:"default_page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would break startup or
// produce silently wrong behavior. Returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.BGG.BaseURL == "" {
		return fmt.Errorf("bgg base_url must not be empty")
	}
	if c.BGG.MinRequestInterval <= 0 {
		return fmt.Errorf("bgg min_request_interval must be positive, got %s", c.BGG.MinRequestInterval)
	}
	if c.BGG.MaxAttempts < 1 {
		return fmt.Errorf("bgg max_attempts must be at least 1, got %d", c.BGG.MaxAttempts)
	}
	if c.BGG.RetryDelay < 0 {
		return fmt.Errorf("bgg retry_delay must not be negative, got %s", c.BGG.RetryDelay)
	}
	if c.BGG.Timeout <= 0 {
		return fmt.Errorf("bgg timeout must be positive, got %s", c.BGG.Timeout)
	}
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("api default_page_size must be at least 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api max_page_size (%d) must not be smaller than default_page_size (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if c.API.RateLimitReqs < 1 {
		return fmt.Errorf("api rate_limit_reqs must be at least 1, got %d", c.API.RateLimitReqs)
	}
	if c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("api rate_limit_window must be positive, got %s", c.API.RateLimitWindow)
	}
	return nil
}
