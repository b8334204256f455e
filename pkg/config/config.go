package config

import "time"

// Config is the root configuration structure for the companion daemon.
// It is produced once by the configuration gate at startup, shared read-only
// with every other component, and never mutated afterwards.
type Config struct {
	// Bot contains Telegram bot credentials and polling tunables.
	Bot BotConfig `yaml:"bot"`

	// Probe contains the probe/endpoint HTTP server configuration.
	Probe ProbeConfig `yaml:"probe"`

	// Preload contains tunables for the best-effort startup cache warm-up.
	Preload PreloadConfig `yaml:"preload"`

	// Cache contains the in-process response cache configuration.
	Cache CacheConfig `yaml:"cache"`

	// Security contains the security policy enforced by the gate and the
	// rate limiting / input validation applied to inbound bot traffic.
	Security SecurityConfig `yaml:"security"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BotConfig contains configuration for the Telegram handler.
type BotConfig struct {
	// Token is the Telegram bot API token. Required.
	Token string `yaml:"token"`

	// PollTimeout is the long-poll timeout for fetching updates.
	// Default: 30s
	PollTimeout time.Duration `yaml:"poll_timeout"`

	// Debug enables verbose logging inside the bot API client.
	// Default: false
	Debug bool `yaml:"debug"`
}

// ProbeConfig contains configuration for the probe HTTP server that serves
// the liveness, readiness and metrics endpoints.
type ProbeConfig struct {
	// ListenAddress is the address and port for the probe server.
	// Format: "host:port". Overridable via the PORT environment variable
	// (deployment platforms inject only the port number).
	// Default: "0.0.0.0:8080"
	ListenAddress string `yaml:"listen_address"`

	// MetricsAddress is the address and port for the Prometheus exposition
	// server. Default: "0.0.0.0:9090"
	MetricsAddress string `yaml:"metrics_address"`

	// ReadTimeout is the maximum duration for reading an entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out a response.
	// Probes must never hang, so this bounds every handler.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight probe
	// requests to complete during graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PreloadConfig contains tunables for the background preloader.
type PreloadConfig struct {
	// Enabled controls whether startup warm-up runs at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// WaitTimeout is how long the orchestrator waits for warm-up before
	// continuing startup without it.
	// Default: 30s
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// Symbols are the instrument symbols warmed into the quote cache.
	Symbols []string `yaml:"symbols"`
}

// CacheConfig contains configuration for the in-process response cache.
type CacheConfig struct {
	// MaxEntries caps the number of cached responses.
	// Default: 1024
	MaxEntries int `yaml:"max_entries"`

	// TTL is how long a cached entry stays fresh.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// CleanupSchedule is a cron expression for the periodic eviction sweep.
	// Default: "@every 10m"
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// SecurityConfig contains the security policy validated by the gate.
type SecurityConfig struct {
	// MinTokenLength is the minimum accepted length for the bot token.
	// Default: 32
	MinTokenLength int `yaml:"min_token_length"`

	// AllowedUserIDs restricts the bot to these Telegram user ids.
	// Empty means no restriction.
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`

	// RateLimit is the per-user sustained message rate (messages/minute).
	// Default: 20
	RateLimit int `yaml:"rate_limit"`

	// RateBurst is the per-user burst allowance.
	// Default: 5
	RateBurst int `yaml:"rate_burst"`

	// MaxMessageLength bounds inbound message size before validation.
	// Default: 4096
	MaxMessageLength int `yaml:"max_message_length"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// RedactSecrets enables redaction of tokens and credentials in log
	// output. Disabling it is only sensible in tests.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "tradeai"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "companion"
	Subsystem string `yaml:"subsystem"`
}
