package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"tradeai-hq/companion/pkg/cache"
	"tradeai-hq/companion/pkg/cli"
	"tradeai-hq/companion/pkg/config"
	"tradeai-hq/companion/pkg/lifecycle"
	"tradeai-hq/companion/pkg/preload"
	"tradeai-hq/companion/pkg/probe"
	"tradeai-hq/companion/pkg/security"
	"tradeai-hq/companion/pkg/telegram"
	"tradeai-hq/companion/pkg/telemetry/audit"
	"tradeai-hq/companion/pkg/telemetry/logging"
	"tradeai-hq/companion/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the companion daemon",
	Long: `Start the companion daemon with the specified configuration.

The daemon validates its configuration, starts the probe and metrics servers,
warms the quote cache in the background, connects the Telegram handler and
then reports ready. It runs until it receives SIGINT or SIGTERM.

Examples:
  # Start with default config
  companion run

  # Start with custom config
  companion run --config /etc/companion/config.yaml

  # Override the probe listen address
  companion run --listen 0.0.0.0:8080

  # Validate config without starting the daemon
  companion run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override probe listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Probe.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		if err := security.CheckPolicy(cfg); err != nil {
			return err
		}
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	// Telemetry
	auditLog := audit.NewLog(logger)
	collector := metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())

	// Quote cache with its periodic janitor. The rate limiter shares the
	// janitor so idle per-user buckets are swept on the same schedule.
	quoteCache := cache.New(cfg.Cache, collector)
	limiter := security.NewRateLimiter(cfg.Security.RateLimit, cfg.Security.RateBurst)
	validator := security.NewInputValidator(cfg.Security)

	janitor := cache.NewJanitor(cfg.Cache.CleanupSchedule, quoteCache, logger)
	janitor.Add(limiter)

	quotes := defaultQuoteSource()

	// The preloader's finish callback runs whenever the warm-up task
	// actually ends, so an outcome that arrives after the orchestrator
	// abandoned the wait still reaches the metrics and the audit trail.
	preloader := preload.New([]preload.Step{
		{Name: "warm_quote_cache", Run: func(ctx context.Context) error {
			return telegram.WarmQuotes(ctx, quotes, quoteCache, cfg.Preload.Symbols)
		}},
	}, logger, func(outcome preload.Outcome) {
		collector.RecordPreloadOutcome(string(outcome.Kind))
		if outcome.Kind == preload.Completed {
			auditLog.RecordSystemEvent("preload_finished", "quote cache warm")
		}
	})

	orch := lifecycle.New(cfg, lifecycle.Deps{
		AuditLog:  auditLog,
		Readiness: collector,
		Janitor:   janitor,
		Warmup:    preloader,
		NewHandler: func() (lifecycle.UpdateHandler, error) {
			return telegram.New(cfg.Bot, limiter, validator, quotes, quoteCache, collector, auditLog, logger)
		},
	}, logger)

	probeServer := probe.NewServer(cfg.Probe, orch, collector, quoteCache, collector, logger)

	var metricsServer lifecycle.Component
	if cfg.Telemetry.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Probe.MetricsAddress, collector, logger)
	}
	orch.AttachServers(probeServer, metricsServer)

	ctx, stop := lifecycle.NotifyShutdown(context.Background(), logger)
	defer stop()

	// Configuration is immutable while the daemon runs; the watcher only
	// tells the operator that a restart is needed to apply a change.
	if watcher, err := config.NewWatcher(cfgFile, logger); err == nil {
		go func() {
			watchErr := watcher.Watch(ctx, func() {
				logger.Warn("configuration file changed on disk, restart required to apply")
			})
			if watchErr != nil {
				logger.Debug("configuration watcher stopped", "error", watchErr)
			}
		}()
	} else {
		logger.Debug("configuration watcher unavailable", "error", err)
	}

	fmt.Printf("✓ Probe endpoints: http://%s/health http://%s/ready\n",
		cfg.Probe.ListenAddress, cfg.Probe.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Prometheus metrics: http://%s/metrics\n", cfg.Probe.MetricsAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := orch.Run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Companion stopped")
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Printf("TradeAI Companion v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	if len(cfg.Preload.Symbols) > 0 {
		slog.Debug("warm-up symbols configured", "count", len(cfg.Preload.Symbols))
	}
	if len(cfg.Security.AllowedUserIDs) > 0 {
		slog.Debug("user allow-list active", "count", len(cfg.Security.AllowedUserIDs))
	}
}

// defaultQuoteSource is the built-in symbol table used when no market data
// feed is configured. Deployments with a real feed swap this for their own
// QuoteSource implementation.
func defaultQuoteSource() telegram.StaticQuoteSource {
	return telegram.StaticQuoteSource{
		"BTC":  67250.00,
		"ETH":  3305.40,
		"SOL":  142.85,
		"AAPL": 228.15,
		"TSLA": 244.60,
		"SPY":  563.90,
	}
}
