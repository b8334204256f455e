// Package audit provides the structured audit trail for lifecycle and
// security events. Every event is a redacted, uniquely identified log record
// so operators can reconstruct exactly how a process started, degraded or
// died without ever seeing a credential.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradeai-hq/companion/pkg/telemetry/logging"
)

// Severity classifies security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single recorded audit event.
type Event struct {
	ID       string
	Name     string
	Detail   string
	Security bool
	Severity Severity
	Time     time.Time
}

// Log records lifecycle and security events. It writes each event through a
// redacting structured logger and keeps a bounded in-memory tail of recent
// events for the probe endpoints.
type Log struct {
	logger   *slog.Logger
	redactor *logging.Redactor

	mu     sync.Mutex
	recent []Event
	limit  int
}

// NewLog creates an audit log writing through the given logger.
// A nil logger falls back to slog.Default.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		logger:   logger,
		redactor: logging.NewRedactor(),
		limit:    64,
	}
}

// RecordSystemEvent records a lifecycle event (startup stage reached,
// shutdown step completed, preload outcome).
func (l *Log) RecordSystemEvent(name, detail string) {
	ev := l.append(name, detail, false, SeverityInfo)

	l.logger.Info("audit event",
		"event_id", ev.ID,
		"event", ev.Name,
		"detail", ev.Detail,
	)
}

// RecordSecurityEvent records a security-relevant event with the given
// severity. The detail is redacted before it is stored or logged.
func (l *Log) RecordSecurityEvent(name, detail string, severity Severity) {
	ev := l.append(name, detail, true, severity)

	level := slog.LevelWarn
	if severity == SeverityCritical {
		level = slog.LevelError
	}
	l.logger.Log(context.Background(), level, "security audit event",
		"event_id", ev.ID,
		"event", ev.Name,
		"detail", ev.Detail,
		"severity", string(ev.Severity),
	)
}

func (l *Log) append(name, detail string, security bool, severity Severity) Event {
	ev := Event{
		ID:       uuid.NewString(),
		Name:     name,
		Detail:   l.redactor.RedactString(detail),
		Security: security,
		Severity: severity,
		Time:     time.Now(),
	}

	l.mu.Lock()
	l.recent = append(l.recent, ev)
	if len(l.recent) > l.limit {
		l.recent = l.recent[len(l.recent)-l.limit:]
	}
	l.mu.Unlock()

	return ev
}

// Recent returns a copy of the retained event tail, oldest first.
func (l *Log) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.recent))
	copy(out, l.recent)
	return out
}
