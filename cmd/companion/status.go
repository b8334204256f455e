package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tradeai-hq/companion/pkg/cli"
)

var statusFlags struct {
	endpoint string
	output   string
	timeout  time.Duration
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running daemon's metrics endpoint",
	Long: `Query the probe server of a running companion daemon and print its
aggregated status: uptime, readiness, handler state and cache statistics.

Examples:
  # Query the local daemon
  companion status

  # Query a remote daemon, machine readable
  companion status --endpoint http://10.0.0.5:8080 --output json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusFlags.endpoint, "endpoint", "http://127.0.0.1:8080", "probe server base URL")
	statusCmd.Flags().StringVarP(&statusFlags.output, "output", "o", "text", "output format (text, json)")
	statusCmd.Flags().DurationVar(&statusFlags.timeout, "timeout", 5*time.Second, "request timeout")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: statusFlags.timeout}

	resp, err := client.Get(statusFlags.endpoint + "/metrics")
	if err != nil {
		return cli.NewCommandError("status", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cli.NewCommandError("status",
			fmt.Errorf("daemon returned %s", resp.Status))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return cli.NewCommandError("status",
			fmt.Errorf("failed to decode metrics payload: %w", err))
	}

	formatter := cli.NewFormatter(cli.OutputFormat(statusFlags.output))
	return formatter.FormatTo(os.Stdout, payload)
}
