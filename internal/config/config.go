// Package config loads DATAFIN_* environment variables the way the
// teacher's data.InitConn loads its DB_/REDIS_ connection settings:
// getEnv(key, default) plus explicit validation of numeric ranges at load
// time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every DATAFIN_* setting recognised by the pipeline.
type Config struct {
	LogLevel          string
	LogFile           string
	NetworkTimeout    time.Duration
	NetworkMaxRetries int
	RetryBackoffMult  float64
	Debug             bool
}

// Load reads and validates the DATAFIN_* environment, returning defaults for
// anything unset.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:          getEnv("DATAFIN_LOG_LEVEL", "INFO"),
		LogFile:           getEnv("DATAFIN_LOG_FILE", ""),
		NetworkTimeout:    30 * time.Second,
		NetworkMaxRetries: 3,
		RetryBackoffMult:  2.0,
		Debug:             false,
	}

	if v := os.Getenv("DATAFIN_NETWORK_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("DATAFIN_NETWORK_TIMEOUT must be an integer: %w", err)
		}
		if secs < 30 || secs > 3600 {
			return Config{}, fmt.Errorf("DATAFIN_NETWORK_TIMEOUT must be between 30 and 3600 seconds, got %d", secs)
		}
		cfg.NetworkTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("DATAFIN_NETWORK_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("DATAFIN_NETWORK_MAX_RETRIES must be an integer: %w", err)
		}
		if n < 0 || n > 10 {
			return Config{}, fmt.Errorf("DATAFIN_NETWORK_MAX_RETRIES must be between 0 and 10, got %d", n)
		}
		cfg.NetworkMaxRetries = n
	}

	if v := os.Getenv("DATAFIN_NETWORK_RETRY_BACKOFF"); v != "" {
		mult, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("DATAFIN_NETWORK_RETRY_BACKOFF must be a number: %w", err)
		}
		if mult < 0.1 || mult > 10 {
			return Config{}, fmt.Errorf("DATAFIN_NETWORK_RETRY_BACKOFF must be between 0.1 and 10, got %v", mult)
		}
		cfg.RetryBackoffMult = mult
	}

	if v := os.Getenv("DATAFIN_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
