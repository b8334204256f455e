package config

import "time"

// Default values for configuration fields.
const (
	// Probe server defaults
	DefaultProbeListenAddress = "0.0.0.0:8080"
	DefaultMetricsAddress     = "0.0.0.0:9090"
	DefaultProbeReadTimeout   = 10 * time.Second
	DefaultProbeWriteTimeout  = 10 * time.Second
	DefaultProbeShutdownWait  = 15 * time.Second

	// Bot defaults
	DefaultBotPollTimeout = 30 * time.Second

	// Preload defaults
	DefaultPreloadEnabled     = true
	DefaultPreloadWaitTimeout = 30 * time.Second

	// Cache defaults
	DefaultCacheMaxEntries      = 1024
	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheCleanupSchedule = "@every 10m"

	// Security defaults
	DefaultMinTokenLength   = 32
	DefaultRateLimit        = 20
	DefaultRateBurst        = 5
	DefaultMaxMessageLength = 4096

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "tradeai"
	DefaultMetricsSubsystem = "companion"
)

// ApplyDefaults fills in default values for any configuration fields that
// were not set. Zero values are treated as "not set" for all fields where a
// zero value is never a valid explicit choice.
func ApplyDefaults(cfg *Config) {
	if cfg.Probe.ListenAddress == "" {
		cfg.Probe.ListenAddress = DefaultProbeListenAddress
	}
	if cfg.Probe.MetricsAddress == "" {
		cfg.Probe.MetricsAddress = DefaultMetricsAddress
	}
	if cfg.Probe.ReadTimeout == 0 {
		cfg.Probe.ReadTimeout = DefaultProbeReadTimeout
	}
	if cfg.Probe.WriteTimeout == 0 {
		cfg.Probe.WriteTimeout = DefaultProbeWriteTimeout
	}
	if cfg.Probe.ShutdownTimeout == 0 {
		cfg.Probe.ShutdownTimeout = DefaultProbeShutdownWait
	}

	if cfg.Bot.PollTimeout == 0 {
		cfg.Bot.PollTimeout = DefaultBotPollTimeout
	}

	if cfg.Preload.WaitTimeout == 0 {
		cfg.Preload.WaitTimeout = DefaultPreloadWaitTimeout
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.CleanupSchedule == "" {
		cfg.Cache.CleanupSchedule = DefaultCacheCleanupSchedule
	}

	if cfg.Security.MinTokenLength == 0 {
		cfg.Security.MinTokenLength = DefaultMinTokenLength
	}
	if cfg.Security.RateLimit == 0 {
		cfg.Security.RateLimit = DefaultRateLimit
	}
	if cfg.Security.RateBurst == 0 {
		cfg.Security.RateBurst = DefaultRateBurst
	}
	if cfg.Security.MaxMessageLength == 0 {
		cfg.Security.MaxMessageLength = DefaultMaxMessageLength
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}
