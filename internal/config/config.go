// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default batching limits. Overridable via environment.
const (
	DefaultSmallFileThreshold = 3 * 1024 * 1024
	DefaultMaxBatchBytes      = 8 * 1024 * 1024
	DefaultMaxFilesPerBatch   = 10
)

// Config holds all synchronizer configuration.
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Remote hosting API
	HostBaseURL string
	HostToken   string
	HostTimeout time.Duration

	// Destination store. A postgres:// URL selects the PostgreSQL backend;
	// anything else is treated as an SQLite database path.
	DatabaseURL string

	// Batching
	SmallFileThreshold int64
	MaxBatchBytes      int64
	MaxFilesPerBatch   int

	// Transport retries
	RetryMaxAttempts int

	// Metrics (optional — empty disables the listener)
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:           envOr("LOG_LEVEL", "info"),
		LogFormat:          envOr("LOG_FORMAT", "json"),
		HostBaseURL:        envOr("GITHOST_BASE_URL", "https://api.github.com"),
		HostToken:          envOr("GITHOST_TOKEN", ""),
		HostTimeout:        envDuration("GITHOST_TIMEOUT", 30*time.Second),
		DatabaseURL:        envOr("DATABASE_URL", ""),
		SmallFileThreshold: envInt64("SMALL_FILE_THRESHOLD", DefaultSmallFileThreshold),
		MaxBatchBytes:      envInt64("MAX_BATCH_BYTES", DefaultMaxBatchBytes),
		MaxFilesPerBatch:   envInt("MAX_FILES_PER_BATCH", DefaultMaxFilesPerBatch),
		RetryMaxAttempts:   envInt("RETRY_MAX_ATTEMPTS", 3),
		MetricsAddr:        envOr("METRICS_ADDR", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SmallFileThreshold <= 0 {
		return nil, fmt.Errorf("SMALL_FILE_THRESHOLD must be positive")
	}
	if cfg.MaxBatchBytes < cfg.SmallFileThreshold {
		return nil, fmt.Errorf("MAX_BATCH_BYTES must be at least SMALL_FILE_THRESHOLD")
	}
	if cfg.MaxFilesPerBatch <= 0 {
		return nil, fmt.Errorf("MAX_FILES_PER_BATCH must be positive")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
