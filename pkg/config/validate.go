package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g. "bot.token").
	Field string

	// Message is a human-readable error message. It must never contain the
	// value of a credential field.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned
// together so a misconfigured deployment fails with a complete report
// instead of one error per restart.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBot(&cfg.Bot, &cfg.Security)...)
	errs = append(errs, validateProbe(&cfg.Probe)...)
	errs = append(errs, validatePreload(&cfg.Preload)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateBot(cfg *BotConfig, sec *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.Token == "" {
		errs = append(errs, FieldError{
			Field:   "bot.token",
			Message: "is required (set TELEGRAM_BOT_TOKEN)",
		})
	} else {
		if len(cfg.Token) < sec.MinTokenLength {
			errs = append(errs, FieldError{
				Field:   "bot.token",
				Message: fmt.Sprintf("shorter than the security policy minimum of %d characters", sec.MinTokenLength),
			})
		}
		// Telegram tokens are "<numeric id>:<secret>".
		if !strings.Contains(cfg.Token, ":") {
			errs = append(errs, FieldError{
				Field:   "bot.token",
				Message: "does not match the expected token format",
			})
		}
	}

	if cfg.PollTimeout < time.Second {
		errs = append(errs, FieldError{
			Field:   "bot.poll_timeout",
			Message: "must be at least 1s",
		})
	}

	return errs
}

func validateProbe(cfg *ProbeConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "probe.listen_address",
			Message: fmt.Sprintf("invalid address %q: must be host:port", cfg.ListenAddress),
		})
	}
	if _, _, err := net.SplitHostPort(cfg.MetricsAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "probe.metrics_address",
			Message: fmt.Sprintf("invalid address %q: must be host:port", cfg.MetricsAddress),
		})
	}
	if cfg.ListenAddress == cfg.MetricsAddress {
		errs = append(errs, FieldError{
			Field:   "probe.metrics_address",
			Message: "must differ from probe.listen_address",
		})
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "probe.read_timeout",
			Message: "must be positive",
		})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "probe.write_timeout",
			Message: "must be positive",
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "probe.shutdown_timeout",
			Message: "must be positive",
		})
	}

	return errs
}

func validatePreload(cfg *PreloadConfig) []FieldError {
	var errs []FieldError

	if cfg.WaitTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "preload.wait_timeout",
			Message: "must be positive",
		})
	}
	for i, sym := range cfg.Symbols {
		if strings.TrimSpace(sym) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("preload.symbols[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxEntries < 0 {
		errs = append(errs, FieldError{
			Field:   "cache.max_entries",
			Message: "must not be negative",
		})
	}
	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.ttl",
			Message: "must be positive",
		})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.MinTokenLength < 16 {
		errs = append(errs, FieldError{
			Field:   "security.min_token_length",
			Message: "must be at least 16",
		})
	}
	if cfg.RateLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "security.rate_limit",
			Message: "must be positive",
		})
	}
	if cfg.RateBurst <= 0 {
		errs = append(errs, FieldError{
			Field:   "security.rate_burst",
			Message: "must be positive",
		})
	}
	if cfg.MaxMessageLength <= 0 {
		errs = append(errs, FieldError{
			Field:   "security.max_message_length",
			Message: "must be positive",
		})
	}
	for i, id := range cfg.AllowedUserIDs {
		if id <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("security.allowed_user_ids[%d]", i),
				Message: "must be a positive Telegram user id",
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q: must be debug, info, warn or error", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q: must be json or text", cfg.Logging.Format),
		})
	}

	return errs
}
