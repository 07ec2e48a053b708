// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the dashboard engine and the demo
// backend. One struct serves both binaries; each reads the fields it needs.
type Config struct {
	// Dashboard engine settings.
	APIBaseURL     string        // Root URL of the triage backend.
	APIKey         string        // Sent as X-API-Key. An empty key sends an empty header value, not an error.
	PollInterval   time.Duration // Periodic refresh cadence while mounted.
	ReplayInterval time.Duration // Replay animation step pace.
	OnUnavailable  string        // "fallback" or "surface-error-keep-stale".

	// Demo backend settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DBPath       string   // SQLite database path; ":memory:" for ephemeral.
	ServerKeys   []string // Accepted API keys. Empty list disables auth (demo mode).

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:     envStr("CLEARQUEUE_API_URL", "http://localhost:8080"),
		APIKey:         envStr("CLEARQUEUE_API_KEY", ""),
		PollInterval:   envDuration("CLEARQUEUE_POLL_INTERVAL", 30*time.Second),
		ReplayInterval: envDuration("CLEARQUEUE_REPLAY_INTERVAL", 800*time.Millisecond),
		OnUnavailable:  envStr("CLEARQUEUE_ON_UNAVAILABLE", "fallback"),
		Port:           envInt("CLEARQUEUE_PORT", 8080),
		ReadTimeout:    envDuration("CLEARQUEUE_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   envDuration("CLEARQUEUE_WRITE_TIMEOUT", 30*time.Second),
		DBPath:         envStr("CLEARQUEUE_DB_PATH", "clearqueue.db"),
		ServerKeys:     envList("CLEARQUEUE_SERVER_API_KEYS"),
		OTELEndpoint:   envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:   envBool("CLEARQUEUE_OTEL_INSECURE", false),
		ServiceName:    envStr("OTEL_SERVICE_NAME", "clearqueue"),
		LogLevel:       envStr("CLEARQUEUE_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("config: CLEARQUEUE_API_URL is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: CLEARQUEUE_POLL_INTERVAL must be positive")
	}
	if c.ReplayInterval <= 0 {
		return fmt.Errorf("config: CLEARQUEUE_REPLAY_INTERVAL must be positive")
	}
	switch c.OnUnavailable {
	case "fallback", "surface-error-keep-stale":
	default:
		return fmt.Errorf("config: CLEARQUEUE_ON_UNAVAILABLE must be %q or %q, got %q",
			"fallback", "surface-error-keep-stale", c.OnUnavailable)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: CLEARQUEUE_PORT %d outside valid range", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: CLEARQUEUE_DB_PATH is required")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// envList parses a comma-separated env var, dropping empty entries.
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
