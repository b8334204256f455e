package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "TradeAI Companion - Telegram trading-assistant bot daemon",
	Long: `TradeAI Companion is a long-running Telegram bot daemon for trading
assistance, built to live behind an orchestration platform.

It provides:
  - A validated startup gate (configuration + security policy)
  - Best-effort cache preloading that never blocks readiness
  - Liveness, readiness and metrics endpoints
  - Ordered, single-shot graceful shutdown`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
