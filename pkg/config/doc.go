// Package config provides configuration management for the companion daemon.
//
// This package is the configuration half of the startup gate: it loads
// settings from an optional YAML file, applies defaults and environment
// variable overrides, and validates everything before any other component is
// allowed to start. A single missing or invalid item fails the whole load;
// there is no partial configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// A missing file is tolerated so the daemon can run from environment
// variables alone, which is how the hosted deployment provides the bot token
// and probe port.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention COMPANION_SECTION_FIELD.
// For example:
//
//   - COMPANION_PROBE_LISTEN_ADDRESS overrides probe.listen_address
//   - COMPANION_PRELOAD_WAIT_TIMEOUT overrides preload.wait_timeout
//   - COMPANION_LOG_LEVEL overrides telemetry.logging.level
//
// Two platform-injected variables keep their conventional names:
//
//   - TELEGRAM_BOT_TOKEN overrides bot.token
//   - PORT overrides the port of probe.listen_address
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// The process entry point initializes configuration exactly once:
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// After Initialize returns, the configuration is immutable; there is no
// reload. The Watcher only reports that the file changed on disk so
// operators know a restart is required. For testing, prefer dependency
// injection with explicit Config instances rather than the global singleton.
//
// # Validation
//
// Validation errors include field paths and helpful messages, with all
// errors collected into a single report:
//
//	configuration validation failed with 2 errors:
//	  - bot.token: is required (set TELEGRAM_BOT_TOKEN)
//	  - probe.listen_address: invalid address "8080": must be host:port
//
// Error messages never contain credential values.
package config
