package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"tradeai-hq/companion/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{
			name: "json format",
			cfg:  config.LoggingConfig{Level: "info", Format: "json"},
		},
		{
			name: "text format",
			cfg:  config.LoggingConfig{Level: "debug", Format: "text"},
		},
		{
			name:    "invalid level",
			cfg:     config.LoggingConfig{Level: "trace", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			cfg:     config.LoggingConfig{Level: "info", Format: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(tt.cfg, &buf)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestLoggerRedactsTokenInMessage(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", RedactSecrets: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("handler failed: token 123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw rejected")

	out := buf.String()
	if strings.Contains(out, "AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw") {
		t.Errorf("token leaked into log output: %s", out)
	}
	if !strings.Contains(out, "***:***") {
		t.Errorf("expected redaction marker in output: %s", out)
	}
}

func TestLoggerRedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", RedactSecrets: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("gate passed", "bot_token", "super-secret-value", "port", 8080)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if got := record["bot_token"]; got != "supe***" {
		t.Errorf("expected redacted token, got %v", got)
	}
	if got := record["port"]; got != float64(8080) {
		t.Errorf("expected non-sensitive attr untouched, got %v", got)
	}
}

func TestLoggerWithAttrsRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", RedactSecrets: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.With(slog.String("api_key", "sk-abcdef123456")).Info("request")

	if strings.Contains(buf.String(), "abcdef123456") {
		t.Errorf("api key leaked via WithAttrs: %s", buf.String())
	}
}

func TestRedactorPatterns(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{
			name:  "telegram token",
			input: "connecting with 987654321:AAEkq9dLKJs8grKJQe7xyz_ABCdefGHIjkl",
			leak:  "AAEkq9dLKJs8grKJQe7xyz",
		},
		{
			name:  "bearer token",
			input: "header Bearer eyJhbGciOiJIUzI1NiJ9.payload",
			leak:  "eyJhbGciOiJIUzI1NiJ9",
		},
		{
			name:  "password field",
			input: "dsn password=hunter22 host=db",
			leak:  "hunter22",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.input)
			if strings.Contains(got, tt.leak) {
				t.Errorf("secret leaked: %q", got)
			}
		})
	}

	t.Run("clean string untouched", func(t *testing.T) {
		in := "readiness flipped to true"
		if got := r.RedactString(in); got != in {
			t.Errorf("expected %q unchanged, got %q", in, got)
		}
	})
}
