package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Redactor scrubs credentials and secrets from log fields. It combines two
// strategies: pattern matching on string values (token shapes that appear
// inside free-form messages) and key-name matching on attributes (any value
// logged under a sensitive key is replaced wholesale).
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in secret patterns.
func NewRedactor() *Redactor {
	patterns := []struct {
		name        string
		regex       string
		replacement string
	}{
		// Telegram bot tokens: "<numeric id>:<35-char secret>".
		{
			name:        "telegram_token",
			regex:       `\b\d{6,12}:[A-Za-z0-9_-]{30,}\b`,
			replacement: "***:***",
		},
		// Generic API keys.
		{
			name:        "api_key",
			regex:       `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`,
			replacement: "sk-***",
		},
		// Bearer tokens.
		{
			name:        "bearer_token",
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},
		// Generic password fields.
		{
			name:        "password",
			regex:       `(password|passwd|pwd)[:=]\s*[^\s]+`,
			replacement: "$1: ***",
		},
	}

	r := &Redactor{}
	for _, p := range patterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	return r
}

// RedactString redacts secrets from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// RedactAttr redacts a single slog attribute. Values under sensitive keys
// are replaced entirely; string values under other keys are pattern-scrubbed.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, redactValue(a.Value.Any()))
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}

	return a
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "pwd",
		"secret", "token", "api_key", "apikey",
		"auth", "authorization",
		"credential", "private_key", "privatekey",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// redactValue replaces a sensitive value, keeping a short prefix of string
// values so operators can still tell credentials apart.
func redactValue(value any) string {
	s, ok := value.(string)
	if !ok {
		return "***"
	}
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

// RedactError formats an error for logging with secrets scrubbed.
func (r *Redactor) RedactError(err error) string {
	if err == nil {
		return ""
	}
	return r.RedactString(fmt.Sprintf("%v", err))
}
