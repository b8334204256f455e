// Package security enforces the security half of the startup gate and
// provides the per-user rate limiting and input validation applied to
// inbound bot traffic.
package security

import (
	"fmt"
	"strings"

	"tradeai-hq/companion/pkg/config"
)

// PolicyError is a security policy violation detected by the gate. It is a
// distinct error kind so callers can audit it as a security event rather
// than a plain configuration mistake.
type PolicyError struct {
	// Rule names the violated policy rule.
	Rule string

	// Message describes the violation. It must never contain a credential.
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("security policy violation (%s): %s", e.Rule, e.Message)
}

// placeholderTokens are values that indicate an unconfigured deployment
// rather than a real credential.
var placeholderTokens = []string{
	"your_token", "your-token", "changeme", "change_me", "example", "xxx",
}

// CheckPolicy verifies the security invariants that go beyond field-level
// configuration validation. It runs inside the startup gate, strictly
// before any concurrent component starts.
func CheckPolicy(cfg *config.Config) error {
	token := cfg.Bot.Token

	lower := strings.ToLower(token)
	for _, placeholder := range placeholderTokens {
		if strings.Contains(lower, placeholder) {
			return &PolicyError{
				Rule:    "token_placeholder",
				Message: "bot token looks like an unconfigured placeholder",
			}
		}
	}

	// A real token secret has mixed characters; a repeated single character
	// means a stubbed credential slipped into the environment.
	if idx := strings.IndexByte(token, ':'); idx >= 0 {
		secret := token[idx+1:]
		if len(secret) > 0 && strings.Count(secret, secret[:1]) == len(secret) {
			return &PolicyError{
				Rule:    "token_entropy",
				Message: "bot token secret is a repeated single character",
			}
		}
	}

	if cfg.Telemetry.Logging.Level == "debug" && !cfg.Telemetry.Logging.RedactSecrets {
		return &PolicyError{
			Rule:    "debug_redaction",
			Message: "debug logging requires secret redaction to stay enabled",
		}
	}

	return nil
}
