package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tradeai-hq/companion/pkg/config"
	"tradeai-hq/companion/pkg/preload"
	"tradeai-hq/companion/pkg/security"
	"tradeai-hq/companion/pkg/telemetry/audit"
)

// Component is a server the orchestrator starts during initialization and
// tears down during shutdown.
type Component interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// UpdateHandler is the long-running bot handler. Run blocks until the
// context is cancelled (clean stop, nil) or the handler crashes (error).
type UpdateHandler interface {
	Run(ctx context.Context) error
	Active() bool
}

// WarmupStarter launches the best-effort warm-up task.
type WarmupStarter interface {
	Start(ctx context.Context) *preload.Task
}

// Readiness is the collector slice the orchestrator drives.
type Readiness interface {
	SetReady(ready bool)
	SetHandlerActive(active bool)
	RecordPreloadOutcome(outcome string)
}

// Janitor is the periodic cache sweeper.
type Janitor interface {
	Start() error
	Stop()
}

// Deps are the components the orchestrator sequences. Probe, Metrics,
// Janitor and Warmup may be nil; the corresponding phase is skipped.
// NewHandler is invoked only after validation passes, so a handler never
// exists for an invalid configuration.
type Deps struct {
	AuditLog   *audit.Log
	Readiness  Readiness
	Probe      Component
	Metrics    Component
	Janitor    Janitor
	Warmup     WarmupStarter
	NewHandler func() (UpdateHandler, error)
}

// Orchestrator drives the daemon through its lifecycle. Run is the single
// writer of state and readiness; State, Ready, HandlerActive and StartTime
// are safe for concurrent readers and back the probe endpoints.
type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	machine *machine
	ready   atomic.Bool
	started time.Time

	handler   UpdateHandler
	handlerMu sync.RWMutex

	cleanupOnce sync.Once
}

// New creates an orchestrator in the Created state. The start timestamp is
// captured here so uptime covers validation and initialization too.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.With("component", "lifecycle"),
		machine: newMachine(),
		started: time.Now(),
	}
}

// AttachServers wires the probe and metrics servers in after construction.
// The probe server consumes the orchestrator as its status source, so the
// two cannot be built in a single step. Must be called before Run.
func (o *Orchestrator) AttachServers(probe, metrics Component) {
	o.deps.Probe = probe
	o.deps.Metrics = metrics
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.machine.Current()
}

// Ready reports whether the daemon is in steady-state operation with a live
// handler. It backs the readiness probe.
func (o *Orchestrator) Ready() bool {
	return o.ready.Load() && o.HandlerActive()
}

// HandlerActive reports whether the bot handler is polling.
func (o *Orchestrator) HandlerActive() bool {
	o.handlerMu.RLock()
	defer o.handlerMu.RUnlock()
	return o.handler != nil && o.handler.Active()
}

// StartTime is the captured process start timestamp.
func (o *Orchestrator) StartTime() time.Time {
	return o.started
}

// Run drives the daemon from Created to a terminal state and blocks until
// shutdown completes. Cancelling ctx requests a graceful stop. A non-nil
// error means the terminal state is Crashed and the process must exit
// non-zero.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.machine.to(StateValidating); err != nil {
		return err
	}

	if err := o.validate(); err != nil {
		// No listener has been bound yet, so there is nothing to tear down.
		o.crash()
		o.logger.Error("startup validation failed", "error", err)
		o.recordSecurityEvent("validation_failed",
			fmt.Sprintf("startup rejected: %v", err), audit.SeverityCritical)
		return err
	}

	if err := o.machine.to(StateInitializing); err != nil {
		return err
	}
	o.recordSystemEvent("startup_initiated", "configuration validated")

	if err := o.startServers(); err != nil {
		o.shutdownWith(err)
		o.crash()
		return err
	}

	o.runWarmup(ctx)

	handler, err := o.createHandler()
	if err != nil {
		err = fmt.Errorf("failed to create handler: %w", err)
		o.logger.Error("handler creation failed", "error", err)
		o.shutdownWith(err)
		o.crash()
		return err
	}

	handlerCtx, stopHandler := context.WithCancel(context.Background())
	defer stopHandler()

	handlerErr := make(chan error, 1)
	go func() { handlerErr <- handler.Run(handlerCtx) }()

	if err := o.waitForHandler(ctx, handler, handlerErr); err != nil {
		runErr := fmt.Errorf("handler crashed: %w", err)
		o.recordSecurityEvent("handler_crashed", err.Error(), audit.SeverityCritical)
		if terr := o.machine.to(StateShuttingDown); terr != nil {
			o.logger.Error("failed to record shutdown state", "error", terr)
		}
		o.shutdownWith(runErr)
		o.crash()
		return runErr
	}

	o.ready.Store(true)
	o.setReadinessMetric(true)
	if err := o.machine.to(StateReady); err != nil {
		return err
	}
	o.recordSystemEvent("startup_complete", "daemon ready")
	o.logger.Info("daemon ready", "uptime", time.Since(o.started))

	var runErr error
	select {
	case <-ctx.Done():
		o.logger.Info("shutdown requested")
	case err := <-handlerErr:
		if err == nil {
			err = errors.New("handler stopped unexpectedly")
		}
		runErr = fmt.Errorf("handler crashed: %w", err)
		o.logger.Error("handler crashed", "error", err)
		o.recordSecurityEvent("handler_crashed", err.Error(), audit.SeverityCritical)
	}

	if err := o.machine.to(StateShuttingDown); err != nil {
		return err
	}

	stopHandler()
	if runErr == nil {
		// Wait for the handler's in-flight update before tearing servers
		// down, bounded so a stuck handler cannot wedge shutdown.
		select {
		case <-handlerErr:
		case <-time.After(o.cfg.Probe.ShutdownTimeout):
			o.logger.Warn("handler did not stop in time")
		}
	}

	o.shutdownWith(runErr)

	if runErr != nil {
		o.crash()
		return runErr
	}
	return o.machine.to(StateStopped)
}

// validate runs the configuration gate: structural validation followed by
// the security policy.
func (o *Orchestrator) validate() error {
	if err := config.Validate(o.cfg); err != nil {
		return err
	}
	if err := security.CheckPolicy(o.cfg); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) startServers() error {
	if o.deps.Metrics != nil {
		if err := o.deps.Metrics.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// The probe server comes up before the handler exists so liveness
	// answers during the whole initialization phase.
	if o.deps.Probe != nil {
		if err := o.deps.Probe.Start(); err != nil {
			return fmt.Errorf("failed to start probe server: %w", err)
		}
	}

	if o.deps.Janitor != nil {
		if err := o.deps.Janitor.Start(); err != nil {
			return fmt.Errorf("failed to start cache janitor: %w", err)
		}
	}

	return nil
}

// runWarmup starts the warm-up task and waits for it up to the configured
// timeout. Timeout and failure degrade cold-start latency only; startup
// always continues. One attempt per process.
func (o *Orchestrator) runWarmup(ctx context.Context) {
	if o.deps.Warmup == nil || !o.cfg.Preload.Enabled {
		return
	}

	task := o.deps.Warmup.Start(ctx)
	outcome := task.Wait(ctx, o.cfg.Preload.WaitTimeout)

	if o.deps.Readiness != nil && outcome.Kind == preload.TimedOut {
		// Completed and failed outcomes are recorded by the preloader's own
		// finish callback when the task ends; only the abandonment is
		// observed here, because the task is still running.
		o.deps.Readiness.RecordPreloadOutcome(string(outcome.Kind))
	}

	switch outcome.Kind {
	case preload.Completed:
		o.recordSystemEvent("preload_complete", "cache warm-up finished")
	case preload.TimedOut:
		o.logger.Warn("cache warm-up still running, continuing startup",
			"timeout", o.cfg.Preload.WaitTimeout)
		o.recordSystemEvent("preload_abandoned", "warm-up exceeded wait timeout")
	case preload.Failed:
		o.logger.Warn("cache warm-up failed, continuing startup", "error", outcome.Err)
		o.recordSystemEvent("preload_failed", "warm-up failed, serving cold")
	}
}

func (o *Orchestrator) createHandler() (UpdateHandler, error) {
	if o.deps.NewHandler == nil {
		return nil, errors.New("no handler factory configured")
	}
	handler, err := o.deps.NewHandler()
	if err != nil {
		return nil, err
	}

	o.handlerMu.Lock()
	o.handler = handler
	o.handlerMu.Unlock()
	return handler, nil
}

// waitForHandler blocks until the handler reports active. Readiness must
// not be set while the handler is still connecting. A handler that exits
// before becoming active is a startup crash; a cancelled context hands
// control back so the main loop can run the normal shutdown path.
func (o *Orchestrator) waitForHandler(ctx context.Context, handler UpdateHandler, handlerErr <-chan error) error {
	for !handler.Active() {
		select {
		case err := <-handlerErr:
			if err == nil {
				err = errors.New("handler stopped before becoming active")
			}
			return err
		case <-ctx.Done():
			return nil
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

// shutdownWith performs the ordered teardown exactly once: readiness is
// withdrawn first, the probe server goes down last, and the final audit
// event is written after everything else.
func (o *Orchestrator) shutdownWith(cause error) {
	o.cleanupOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Probe.ShutdownTimeout)
		defer cancel()

		o.ready.Store(false)
		o.setReadinessMetric(false)

		if o.deps.Janitor != nil {
			o.deps.Janitor.Stop()
		}

		if o.deps.Metrics != nil {
			if err := o.deps.Metrics.Shutdown(ctx); err != nil {
				o.logger.Warn("metrics server shutdown failed", "error", err)
			}
		}

		if o.deps.Probe != nil {
			if err := o.deps.Probe.Shutdown(ctx); err != nil {
				o.logger.Warn("probe server shutdown failed", "error", err)
			}
		}

		if cause != nil {
			o.recordSystemEvent("shutdown_complete", fmt.Sprintf("daemon stopped after error: %v", cause))
		} else {
			o.recordSystemEvent("shutdown_complete", "daemon stopped cleanly")
		}
		o.logger.Info("shutdown complete", "uptime", time.Since(o.started))
	})
}

func (o *Orchestrator) crash() {
	if err := o.machine.to(StateCrashed); err != nil {
		o.logger.Error("failed to record crash state", "error", err)
	}
}

func (o *Orchestrator) setReadinessMetric(ready bool) {
	if o.deps.Readiness != nil {
		o.deps.Readiness.SetReady(ready)
		o.deps.Readiness.SetHandlerActive(ready && o.HandlerActive())
	}
}

func (o *Orchestrator) recordSystemEvent(name, detail string) {
	if o.deps.AuditLog != nil {
		o.deps.AuditLog.RecordSystemEvent(name, detail)
	}
}

func (o *Orchestrator) recordSecurityEvent(name, detail string, severity audit.Severity) {
	if o.deps.AuditLog != nil {
		o.deps.AuditLog.RecordSecurityEvent(name, detail, severity)
	}
}
