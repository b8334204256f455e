package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"tradeai-hq/companion/pkg/config"
)

var (
	// ErrMessageTooLong is returned for messages over the configured limit.
	ErrMessageTooLong = errors.New("message exceeds maximum length")

	// ErrInvalidEncoding is returned for messages that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("message is not valid UTF-8")

	// ErrControlCharacters is returned for messages embedding control bytes.
	ErrControlCharacters = errors.New("message contains control characters")
)

// InputValidator screens inbound Telegram messages before they reach any
// command handling, and enforces the allow-list of user ids.
type InputValidator struct {
	maxLength    int
	allowedUsers map[int64]struct{}
}

// NewInputValidator creates a validator from the security configuration.
func NewInputValidator(cfg config.SecurityConfig) *InputValidator {
	v := &InputValidator{maxLength: cfg.MaxMessageLength}

	if len(cfg.AllowedUserIDs) > 0 {
		v.allowedUsers = make(map[int64]struct{}, len(cfg.AllowedUserIDs))
		for _, id := range cfg.AllowedUserIDs {
			v.allowedUsers[id] = struct{}{}
		}
	}

	return v
}

// Authorized reports whether the user may talk to the bot at all.
// An empty allow-list authorizes everyone.
func (v *InputValidator) Authorized(userID int64) bool {
	if v.allowedUsers == nil {
		return true
	}
	_, ok := v.allowedUsers[userID]
	return ok
}

// ValidateMessage checks an inbound message body. Newlines and tabs are
// legitimate in chat messages; all other control characters are rejected.
func (v *InputValidator) ValidateMessage(text string) error {
	if len(text) > v.maxLength {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLong, len(text), v.maxLength)
	}
	if !utf8.ValidString(text) {
		return ErrInvalidEncoding
	}
	for _, r := range text {
		if unicode.IsControl(r) && !strings.ContainsRune("\n\r\t", r) {
			return ErrControlCharacters
		}
	}
	return nil
}
