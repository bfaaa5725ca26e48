// Package config manages application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// channelIDPattern matches YouTube channel external IDs ("UC" + 22 chars).
var channelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)

// Config holds all application configuration for a batch ingestion run.
type Config struct {
	// APIKey is the YouTube Data API key.
	APIKey string
	// ChannelIDs are the target channel external IDs.
	ChannelIDs []string

	// DatabaseURL is the warehouse connection string. If empty, it is
	// assembled from the DB_* variables.
	DatabaseURL string

	// MaxVideosPerChannel bounds how many videos are extracted per channel.
	MaxVideosPerChannel int64
	// MaxCommentsPerVideo bounds how many comment threads are extracted per video.
	MaxCommentsPerVideo int64
	// RequestsPerSecond paces outbound API requests.
	RequestsPerSecond float64

	// MaxRetries is the maximum number of retries for failed API calls.
	MaxRetries int
	// InitialBackoff is the initial backoff duration for retries.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration for retries.
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1).
	BackoffMultiplier float64

	// LogLevel is the zerolog level name ("debug", "info", "warn", "error").
	LogLevel string
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxVideosPerChannel: 50,
		MaxCommentsPerVideo: 20,
		RequestsPerSecond:   2.0,
		MaxRetries:          3,
		InitialBackoff:      1 * time.Second,
		MaxBackoff:          30 * time.Second,
		BackoffMultiplier:   2.0,
		LogLevel:            "info",
	}
}

// Load builds configuration from environment variables over defaults and
// validates the result.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	c.APIKey = os.Getenv("YOUTUBE_API_KEY")
	if v := os.Getenv("YOUTUBE_CHANNEL_IDS"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.ChannelIDs = append(c.ChannelIDs, id)
			}
		}
	}
	c.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("YTETL_MAX_VIDEOS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxVideosPerChannel = n
		}
	}
	if v := os.Getenv("YTETL_MAX_COMMENTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxCommentsPerVideo = n
		}
	}
	if v := os.Getenv("YTETL_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("YTETL_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("YTETL_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("YTETL_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// databaseURLFromParts assembles a connection URL from the individual DB_*
// variables. Returns "" if any required part is missing.
func databaseURLFromParts() string {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")

	if user == "" || password == "" || host == "" || name == "" {
		return ""
	}
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(user), url.QueryEscape(password), host, port, name)
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY must be set")
	}
	if len(c.ChannelIDs) == 0 {
		return fmt.Errorf("YOUTUBE_CHANNEL_IDS must list at least one channel")
	}
	for _, id := range c.ChannelIDs {
		if !channelIDPattern.MatchString(id) {
			return fmt.Errorf("invalid channel ID %q", id)
		}
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database credentials must be set (DATABASE_URL or DB_* variables)")
	}
	if c.MaxVideosPerChannel < 0 {
		return fmt.Errorf("max videos must be non-negative")
	}
	if c.MaxCommentsPerVideo < 0 {
		return fmt.Errorf("max comments must be non-negative")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max backoff must be >= initial backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff multiplier must be > 1")
	}
	return nil
}
