// Package config reads the process configuration from the environment.
// Driver-specific variables (catalog, storage, blob) stay with their
// factories; this covers the surface the server binary itself needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the typed server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// QueueCapacity bounds the sweep queue.
	QueueCapacity int
	// RateLimitPerSecond is the per-IP request budget; 0 disables limiting.
	RateLimitPerSecond float64
	// RateLimitBurst is the per-IP burst size.
	RateLimitBurst int
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Environment variable names.
const (
	EnvAddr            = "OPTICORE_ADDR"
	EnvLogLevel        = "OPTICORE_LOG_LEVEL"
	EnvQueueCapacity   = "OPTICORE_QUEUE_CAPACITY"
	EnvRateLimit       = "OPTICORE_RATE_LIMIT_PER_SECOND"
	EnvRateLimitBurst  = "OPTICORE_RATE_LIMIT_BURST"
	EnvShutdownTimeout = "OPTICORE_SHUTDOWN_TIMEOUT"
)

// Default values.
const (
	DefaultAddr            = ":8080"
	DefaultLogLevel        = "info"
	DefaultQueueCapacity   = 8
	DefaultRateLimit       = 10.0
	DefaultRateLimitBurst  = 30
	DefaultShutdownTimeout = 10 * time.Second
)

// FromEnv builds a Config from the environment, applying defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:               envOr(EnvAddr, DefaultAddr),
		LogLevel:           envOr(EnvLogLevel, DefaultLogLevel),
		QueueCapacity:      DefaultQueueCapacity,
		RateLimitPerSecond: DefaultRateLimit,
		RateLimitBurst:     DefaultRateLimitBurst,
		ShutdownTimeout:    DefaultShutdownTimeout,
	}
	if v := os.Getenv(EnvQueueCapacity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s: want positive integer, got %q", EnvQueueCapacity, v)
		}
		cfg.QueueCapacity = n
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return Config{}, fmt.Errorf("%s: want non-negative number, got %q", EnvRateLimit, v)
		}
		cfg.RateLimitPerSecond = f
	}
	if v := os.Getenv(EnvRateLimitBurst); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s: want positive integer, got %q", EnvRateLimitBurst, v)
		}
		cfg.RateLimitBurst = n
	}
	if v := os.Getenv(EnvShutdownTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: want positive duration, got %q", EnvShutdownTimeout, v)
		}
		cfg.ShutdownTimeout = d
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("%s: unknown level %q", EnvLogLevel, cfg.LogLevel)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
