package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestLog(t *testing.T) (*Log, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewLog(logger), &buf
}

func TestRecordSystemEvent(t *testing.T) {
	log, buf := newTestLog(t)

	log.RecordSystemEvent("startup_complete", "all stages finished")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if record["event"] != "startup_complete" {
		t.Errorf("expected event name, got %v", record["event"])
	}
	if record["event_id"] == nil || record["event_id"] == "" {
		t.Error("expected a non-empty event id")
	}
	if record["level"] != "INFO" {
		t.Errorf("expected INFO level, got %v", record["level"])
	}
}

func TestRecordSecurityEventSeverity(t *testing.T) {
	tests := []struct {
		name      string
		severity  Severity
		wantLevel string
	}{
		{name: "warning severity", severity: SeverityWarning, wantLevel: "WARN"},
		{name: "critical severity", severity: SeverityCritical, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newTestLog(t)

			log.RecordSecurityEvent("handler_crash", "fatal poll error", tt.severity)

			var record map[string]any
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("failed to parse log output: %v", err)
			}
			if record["level"] != tt.wantLevel {
				t.Errorf("expected level %s, got %v", tt.wantLevel, record["level"])
			}
			if record["severity"] != string(tt.severity) {
				t.Errorf("expected severity %s, got %v", tt.severity, record["severity"])
			}
		})
	}
}

func TestSecurityEventDetailRedacted(t *testing.T) {
	log, buf := newTestLog(t)

	log.RecordSecurityEvent(
		"validation_failed",
		"rejected token 123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw",
		SeverityWarning,
	)

	if strings.Contains(buf.String(), "AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw") {
		t.Errorf("token leaked into audit output: %s", buf.String())
	}

	events := log.Recent()
	if len(events) != 1 {
		t.Fatalf("expected 1 retained event, got %d", len(events))
	}
	if strings.Contains(events[0].Detail, "AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw") {
		t.Error("token leaked into retained event")
	}
}

func TestRecentTailBounded(t *testing.T) {
	log, _ := newTestLog(t)

	for i := 0; i < 100; i++ {
		log.RecordSystemEvent("tick", "")
	}

	events := log.Recent()
	if len(events) != 64 {
		t.Errorf("expected tail capped at 64 events, got %d", len(events))
	}
}

func TestEventIDsUnique(t *testing.T) {
	log, _ := newTestLog(t)

	log.RecordSystemEvent("a", "")
	log.RecordSystemEvent("b", "")

	events := log.Recent()
	if events[0].ID == events[1].ID {
		t.Error("expected unique event ids")
	}
}
