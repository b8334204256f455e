package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tradeai-hq/companion/pkg/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Bot.Token = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"
	config.ApplyDefaults(cfg)
	cfg.Telemetry.Logging.RedactSecrets = true
	return cfg
}

func TestCheckPolicy(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantRule string
	}{
		{
			name:   "valid config passes",
			mutate: func(c *config.Config) {},
		},
		{
			name:     "placeholder token",
			mutate:   func(c *config.Config) { c.Bot.Token = "123456789:CHANGEME_CHANGEME_CHANGEME_CHANGEME" },
			wantRule: "token_placeholder",
		},
		{
			name:     "repeated character secret",
			mutate:   func(c *config.Config) { c.Bot.Token = "123456789:" + strings.Repeat("a", 35) },
			wantRule: "token_entropy",
		},
		{
			name: "debug logging without redaction",
			mutate: func(c *config.Config) {
				c.Telemetry.Logging.Level = "debug"
				c.Telemetry.Logging.RedactSecrets = false
			},
			wantRule: "debug_redaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)

			err := CheckPolicy(cfg)
			if tt.wantRule == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var perr *PolicyError
			if !errors.As(err, &perr) {
				t.Fatalf("expected PolicyError, got %T (%v)", err, err)
			}
			if perr.Rule != tt.wantRule {
				t.Errorf("expected rule %q, got %q", tt.wantRule, perr.Rule)
			}
			if strings.Contains(perr.Error(), cfg.Bot.Token) {
				t.Error("policy error leaked the token")
			}
		})
	}
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(60, 3) // 1 token/sec, burst of 3
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !rl.allowAt(1, now) {
			t.Fatalf("expected burst message %d allowed", i)
		}
	}
	if rl.allowAt(1, now) {
		t.Error("expected message over burst rejected")
	}

	// One token refills after a second.
	if !rl.allowAt(1, now.Add(1100*time.Millisecond)) {
		t.Error("expected message allowed after refill")
	}
}

func TestRateLimiterIsolatesUsers(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	now := time.Now()

	if !rl.allowAt(1, now) {
		t.Fatal("expected first user allowed")
	}
	if rl.allowAt(1, now) {
		t.Error("expected first user throttled")
	}
	if !rl.allowAt(2, now) {
		t.Error("expected second user unaffected")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	rl.allowAt(1, time.Now().Add(-time.Hour))

	if rl.TrackedUsers() != 1 {
		t.Fatalf("expected 1 tracked user, got %d", rl.TrackedUsers())
	}
	if removed := rl.Sweep(); removed != 1 {
		t.Errorf("expected 1 bucket swept, got %d", removed)
	}
	if rl.TrackedUsers() != 0 {
		t.Errorf("expected 0 tracked users after sweep, got %d", rl.TrackedUsers())
	}
}

func TestInputValidator(t *testing.T) {
	cfg := config.SecurityConfig{MaxMessageLength: 32}
	v := NewInputValidator(cfg)

	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{name: "plain message", text: "price AAPL"},
		{name: "multiline message", text: "price AAPL\nprice MSFT"},
		{name: "too long", text: strings.Repeat("x", 33), wantErr: ErrMessageTooLong},
		{name: "invalid utf-8", text: string([]byte{0xff, 0xfe}), wantErr: ErrInvalidEncoding},
		{name: "control characters", text: "price\x00AAPL", wantErr: ErrControlCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateMessage(tt.text)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInputValidatorAllowList(t *testing.T) {
	open := NewInputValidator(config.SecurityConfig{MaxMessageLength: 32})
	if !open.Authorized(99) {
		t.Error("expected empty allow-list to authorize everyone")
	}

	restricted := NewInputValidator(config.SecurityConfig{
		MaxMessageLength: 32,
		AllowedUserIDs:   []int64{7},
	})
	if !restricted.Authorized(7) {
		t.Error("expected listed user authorized")
	}
	if restricted.Authorized(8) {
		t.Error("expected unlisted user rejected")
	}
}
