// TradeAI Companion is a Telegram trading-assistant bot daemon.
//
// It runs as a long-lived service behind an orchestration platform,
// providing:
//   - A validated startup gate (configuration + security policy)
//   - Best-effort cache preloading that never blocks readiness
//   - Liveness, readiness and metrics endpoints for the platform
//   - Ordered, single-shot graceful shutdown
//
// Usage:
//
//	# Start the daemon with default configuration
//	companion run
//
//	# Start with a custom configuration file
//	companion run --config /path/to/config.yaml
//
//	# Validate configuration without starting the daemon
//	companion run --dry-run
//
//	# Show version information
//	companion version
package main

func main() {
	Execute()
}
