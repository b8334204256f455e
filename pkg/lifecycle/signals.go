package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// NotifyShutdown returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal means graceful shutdown is stuck or the operator
// is impatient; the process is terminated immediately with a non-zero exit.
func NotifyShutdown(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go watchSignals(sigCh, cancel, func(code int) { os.Exit(code) }, logger)

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// watchSignals implements the first-signal/second-signal policy. exit is
// injectable so tests can observe the forced termination.
func watchSignals(sigCh <-chan os.Signal, cancel context.CancelFunc, exit func(int), logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	sig, ok := <-sigCh
	if !ok {
		return
	}
	logger.Info("received shutdown signal", "signal", sig.String())
	cancel()

	sig, ok = <-sigCh
	if !ok {
		return
	}
	logger.Error("received second signal, terminating immediately", "signal", sig.String())
	exit(1)
}
