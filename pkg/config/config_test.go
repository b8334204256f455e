package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testToken is shaped like a real Telegram token and satisfies the default
// security policy (length and ":" separator).
const testToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "bot:\n  token: \""+testToken+"\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Probe.ListenAddress != DefaultProbeListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultProbeListenAddress, cfg.Probe.ListenAddress)
	}
	if cfg.Probe.MetricsAddress != DefaultMetricsAddress {
		t.Errorf("expected metrics address %q, got %q", DefaultMetricsAddress, cfg.Probe.MetricsAddress)
	}
	if cfg.Preload.WaitTimeout != DefaultPreloadWaitTimeout {
		t.Errorf("expected preload wait timeout %v, got %v", DefaultPreloadWaitTimeout, cfg.Preload.WaitTimeout)
	}
	if !cfg.Preload.Enabled {
		t.Error("expected preload enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if !cfg.Telemetry.Logging.RedactSecrets {
		t.Error("expected secret redaction enabled by default")
	}
	if cfg.Cache.CleanupSchedule != DefaultCacheCleanupSchedule {
		t.Errorf("expected cleanup schedule %q, got %q", DefaultCacheCleanupSchedule, cfg.Cache.CleanupSchedule)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	// A missing file is tolerated but the required token is then absent,
	// so validation must fail.
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected validation error for missing token")
	}
	if !strings.Contains(err.Error(), "bot.token") {
		t.Errorf("expected bot.token in error, got: %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "bot: [not a mapping\n")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigExplicitDisable(t *testing.T) {
	path := writeConfigFile(t, `
bot:
  token: "`+testToken+`"
preload:
  enabled: false
telemetry:
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Preload.Enabled {
		t.Error("expected preload disabled")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := newConfig()
		cfg.Bot.Token = testToken
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "missing token",
			mutate:    func(c *Config) { c.Bot.Token = "" },
			wantField: "bot.token",
		},
		{
			name:      "short token",
			mutate:    func(c *Config) { c.Bot.Token = "123:short" },
			wantField: "bot.token",
		},
		{
			name:      "token without separator",
			mutate:    func(c *Config) { c.Bot.Token = strings.Repeat("a", 40) },
			wantField: "bot.token",
		},
		{
			name:      "bad listen address",
			mutate:    func(c *Config) { c.Probe.ListenAddress = "8080" },
			wantField: "probe.listen_address",
		},
		{
			name:      "probe and metrics on same port",
			mutate:    func(c *Config) { c.Probe.MetricsAddress = c.Probe.ListenAddress },
			wantField: "probe.metrics_address",
		},
		{
			name:      "negative preload timeout",
			mutate:    func(c *Config) { c.Preload.WaitTimeout = -time.Second },
			wantField: "preload.wait_timeout",
		},
		{
			name:      "empty preload symbol",
			mutate:    func(c *Config) { c.Preload.Symbols = []string{"AAPL", " "} },
			wantField: "preload.symbols[1]",
		},
		{
			name:      "weak token length policy",
			mutate:    func(c *Config) { c.Security.MinTokenLength = 8 },
			wantField: "security.min_token_length",
		},
		{
			name:      "non-positive rate limit",
			mutate:    func(c *Config) { c.Security.RateLimit = 0 },
			wantField: "security.rate_limit",
		},
		{
			name:      "invalid user id",
			mutate:    func(c *Config) { c.Security.AllowedUserIDs = []int64{42, -1} },
			wantField: "security.allowed_user_ids[1]",
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "invalid log format",
			mutate:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got: %v", tt.wantField, verr)
			}
		})
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := Validate(valid()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestValidateNeverLeaksToken(t *testing.T) {
	cfg := newConfig()
	cfg.Bot.Token = "12:secret-value-that-must-not-appear"
	ApplyDefaults(cfg)

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for short token")
	}
	if strings.Contains(err.Error(), "secret-value") {
		t.Errorf("validation error leaked the token: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "bot:\n  token: \""+testToken+"\"\n")

	t.Setenv("PORT", "9000")
	t.Setenv("COMPANION_LOG_LEVEL", "debug")
	t.Setenv("COMPANION_PRELOAD_WAIT_TIMEOUT", "45s")
	t.Setenv("COMPANION_PRELOAD_ENABLED", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Probe.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected PORT override, got %q", cfg.Probe.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Preload.WaitTimeout != 45*time.Second {
		t.Errorf("expected 45s wait timeout, got %v", cfg.Preload.WaitTimeout)
	}
	if cfg.Preload.Enabled {
		t.Error("expected preload disabled via env")
	}
}

func TestEnvTokenOverride(t *testing.T) {
	path := writeConfigFile(t, "{}\n")

	t.Setenv("TELEGRAM_BOT_TOKEN", testToken)

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bot.Token != testToken {
		t.Error("expected token from environment")
	}
}

func TestValidationErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  ValidationError
		want string
	}{
		{
			name: "no errors",
			err:  ValidationError{},
			want: "configuration validation failed",
		},
		{
			name: "single error",
			err: ValidationError{Errors: []FieldError{
				{Field: "bot.token", Message: "is required"},
			}},
			want: "configuration validation failed: bot.token: is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("multiple errors lists all", func(t *testing.T) {
		err := ValidationError{Errors: []FieldError{
			{Field: "a", Message: "one"},
			{Field: "b", Message: "two"},
		}}
		msg := err.Error()
		if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "a: one") || !strings.Contains(msg, "b: two") {
			t.Errorf("unexpected message: %q", msg)
		}
	})
}

func TestSingleton(t *testing.T) {
	// The sync.Once guard makes Initialize untestable more than once per
	// process, so exercise the setter path used by tests and the nil case.
	SetConfig(nil)
	if GetConfig() != nil {
		t.Fatal("expected nil config before initialization")
	}

	cfg := newConfig()
	cfg.Bot.Token = testToken
	ApplyDefaults(cfg)

	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("expected SetConfig to replace the global instance")
	}
	if MustGetConfig() != cfg {
		t.Error("expected MustGetConfig to return the global instance")
	}
}
