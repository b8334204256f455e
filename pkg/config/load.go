package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// A missing file is not an error: the daemon can run entirely from defaults
// and environment variables. Defaults are applied before validation so a
// partially specified file still yields a complete configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := newConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Env-only deployment; keep defaults.
	default:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// COMPANION_SECTION_FIELD (e.g. COMPANION_PROBE_LISTEN_ADDRESS), with two
// deployment-platform exceptions: PORT overrides the probe server port and
// TELEGRAM_BOT_TOKEN overrides the bot token.
//
// The loading sequence is:
// 1. Load YAML from file (missing file tolerated)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := newConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Env-only deployment; keep defaults.
	default:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// newConfig returns a Config with boolean defaults pre-set, so YAML files
// that omit those fields do not accidentally disable them.
func newConfig() *Config {
	return &Config{
		Preload: PreloadConfig{Enabled: DefaultPreloadEnabled},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactSecrets: true},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Platform-injected variables take the original deployment names.
	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		cfg.Bot.Token = val
	}
	if val := os.Getenv("PORT"); val != "" {
		if _, err := strconv.Atoi(val); err == nil {
			host := cfg.Probe.ListenAddress
			if idx := strings.LastIndex(host, ":"); idx >= 0 {
				host = host[:idx]
			}
			cfg.Probe.ListenAddress = host + ":" + val
		}
	}

	if val := os.Getenv("COMPANION_PROBE_LISTEN_ADDRESS"); val != "" {
		cfg.Probe.ListenAddress = val
	}
	if val := os.Getenv("COMPANION_PROBE_METRICS_ADDRESS"); val != "" {
		cfg.Probe.MetricsAddress = val
	}
	if val := os.Getenv("COMPANION_PROBE_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Probe.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("COMPANION_PRELOAD_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Preload.Enabled = b
		}
	}
	if val := os.Getenv("COMPANION_PRELOAD_WAIT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Preload.WaitTimeout = d
		}
	}
	if val := os.Getenv("COMPANION_BOT_POLL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Bot.PollTimeout = d
		}
	}
	if val := os.Getenv("COMPANION_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("COMPANION_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("COMPANION_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
