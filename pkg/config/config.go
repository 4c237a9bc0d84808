// Package config loads and validates the gateway's process-wide
// configuration. Options come from environment variables, with an optional
// YAML file named by CONFIG_FILE supplying values the environment does not
// set: every option is read once at startup, validated, and then held
// immutable for the process lifetime through a singleton.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's validated, immutable runtime configuration.
type Config struct {
	// AdminAPIKey is the admin credential compared against the
	// X-API-Key header on every /admin/* request. Required, >= 16 chars.
	AdminAPIKey string

	// Host and Port are the gateway's own listen address.
	Host string
	Port int

	// DatabaseURL names the registry's persistence location. A SQLite
	// file path, or ":memory:" to select the in-memory store.
	DatabaseURL string

	// HealthCheckInterval is the spacing between health monitor cycles.
	// Enforced minimum: 10s.
	HealthCheckInterval time.Duration

	// HealthCheckTimeout bounds each individual backend probe.
	HealthCheckTimeout time.Duration

	// MaxConsecutiveFailures is the threshold F at which a backend is
	// auto-deregistered, shared by the health monitor and the request
	// handler's pre-response-failure demotion path.
	MaxConsecutiveFailures int

	// AutoDeregisterAfterFailures enables soft-delete once
	// MaxConsecutiveFailures is reached.
	AutoDeregisterAfterFailures bool

	// RequestTimeout bounds buffered forwards end-to-end. Streaming uses
	// an idle-chunk deadline instead (see StreamIdleTimeout).
	RequestTimeout time.Duration

	// StreamIdleTimeout bounds the gap between successive SSE chunks on
	// a streaming forward.
	StreamIdleTimeout time.Duration

	// MaxRetryAttempts is the number of additional attempts after the
	// first (so a request makes at most 1+MaxRetryAttempts attempts).
	MaxRetryAttempts int

	// MaxRequestBodySize is the 413 threshold, in bytes.
	MaxRequestBodySize int64

	// ShutdownGracePeriod bounds how long in-flight requests are given
	// to complete after a shutdown signal before being cancelled.
	ShutdownGracePeriod time.Duration

	// LogLevel and LogFormat configure pkg/telemetry/logging.
	LogLevel  string
	LogFormat string
}

// Addr returns the "host:port" string for http.Server.Addr.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// envSource abstracts environment variable lookup so tests can inject a
// fake source instead of mutating process environment.
type envSource func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// for anything unset, and validates the result. It never mutates global
// state; callers install the result via Initialize.
//
// If CONFIG_FILE names a YAML file, its top-level keys are layered in as a
// fallback for any variable not set in the real environment — env vars
// always win, matching the gateway's env-first configuration contract.
func Load() (*Config, error) {
	lookup := envSource(os.LookupEnv)

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		fileVals, err := loadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load CONFIG_FILE: %w", err)
		}
		lookup = overlayEnv(lookup, fileVals)
	}

	return load(lookup)
}

// overlayEnv returns an envSource that checks env first, falling back to
// the file-sourced values only for keys env does not set.
func overlayEnv(env envSource, file map[string]string) envSource {
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
}

// loadConfigFile reads a YAML file of top-level string keys into a map
// suitable for overlaying onto environment variable lookups.
func loadConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func load(lookup envSource) (*Config, error) {
	cfg := &Config{
		Host:                        getString(lookup, "HOST", "0.0.0.0"),
		Port:                        getInt(lookup, "PORT", 8000),
		DatabaseURL:                 getString(lookup, "DATABASE_URL", "data/gateway.db"),
		HealthCheckInterval:         getSeconds(lookup, "HEALTH_CHECK_INTERVAL_SECONDS", 60),
		HealthCheckTimeout:          getSeconds(lookup, "HEALTH_CHECK_TIMEOUT_SECONDS", 10),
		MaxConsecutiveFailures:      getInt(lookup, "MAX_CONSECUTIVE_FAILURES", 3),
		AutoDeregisterAfterFailures: getBool(lookup, "AUTO_DEREGISTER_AFTER_FAILURES", true),
		RequestTimeout:              getSeconds(lookup, "REQUEST_TIMEOUT_SECONDS", 300),
		StreamIdleTimeout:           getSeconds(lookup, "STREAM_IDLE_TIMEOUT_SECONDS", 60),
		MaxRetryAttempts:            getInt(lookup, "MAX_RETRY_ATTEMPTS", 2),
		MaxRequestBodySize:          int64(getInt(lookup, "MAX_REQUEST_BODY_SIZE", 1048576)),
		ShutdownGracePeriod:         getSeconds(lookup, "SHUTDOWN_GRACE_PERIOD_SECONDS", 10),
		LogLevel:                    getString(lookup, "LOG_LEVEL", "info"),
		LogFormat:                   getString(lookup, "LOG_FORMAT", "json"),
	}

	if key, ok := lookup("ADMIN_API_KEY"); ok {
		cfg.AdminAPIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a configuration that would leave the gateway unable to
// enforce its own invariants. It is run once by Load, before the process
// binds a socket.
func (c *Config) Validate() error {
	var problems []string

	if len(c.AdminAPIKey) < 16 {
		problems = append(problems, "ADMIN_API_KEY is required and must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.HealthCheckInterval < 10*time.Second {
		problems = append(problems, "HEALTH_CHECK_INTERVAL_SECONDS must be at least 10")
	}
	if c.HealthCheckTimeout <= 0 {
		problems = append(problems, "HEALTH_CHECK_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxConsecutiveFailures < 1 {
		problems = append(problems, "MAX_CONSECUTIVE_FAILURES must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.StreamIdleTimeout <= 0 {
		problems = append(problems, "STREAM_IDLE_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxRetryAttempts < 0 {
		problems = append(problems, "MAX_RETRY_ATTEMPTS must be non-negative")
	}
	if c.MaxRequestBodySize <= 0 {
		problems = append(problems, "MAX_REQUEST_BODY_SIZE must be positive")
	}
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getString(lookup envSource, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envSource, key string, def int) int {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getSeconds(lookup envSource, key string, defSeconds int) time.Duration {
	return time.Duration(getInt(lookup, key, defSeconds)) * time.Second
}

func getBool(lookup envSource, key string, def bool) bool {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
