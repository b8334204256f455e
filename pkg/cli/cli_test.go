package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("bot.token", "is required")
	if !strings.Contains(err.Error(), "bot.token") {
		t.Errorf("expected field in message, got %q", err.Error())
	}

	err = NewConfigError("", "file unreadable")
	if got := err.Error(); got != "config error: file unreadable" {
		t.Errorf("unexpected fieldless message: %q", got)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("run", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
	if !strings.Contains(err.Error(), "run") {
		t.Errorf("expected command name in message, got %q", err.Error())
	}
}

func TestTextFormatterSortsKeys(t *testing.T) {
	var sb strings.Builder
	f := NewFormatter(FormatText)

	err := f.FormatTo(&sb, map[string]any{"zeta": 1, "alpha": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := sb.String()
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("expected sorted keys, got %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	var sb strings.Builder
	f := NewFormatter(FormatJSON)

	if err := f.FormatTo(&sb, map[string]any{"ready": true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(sb.String()), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["ready"] != true {
		t.Errorf("unexpected payload: %v", parsed)
	}
}

func TestUnknownFormatFallsBackToText(t *testing.T) {
	if _, ok := NewFormatter("csv").(*TextFormatter); !ok {
		t.Error("expected text fallback for unknown format")
	}
}
