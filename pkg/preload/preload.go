// Package preload implements the best-effort startup warm-up. The
// orchestrator starts it as a supervised background task and waits for it
// with a fixed timeout; a slow or failing warm-up degrades cold-start
// latency but never blocks readiness.
package preload

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OutcomeKind classifies how the warm-up ended, from the orchestrator's
// point of view.
type OutcomeKind string

const (
	// Completed means every warm-up step finished before the wait timeout.
	Completed OutcomeKind = "completed"

	// TimedOut means the orchestrator abandoned the wait. The task keeps
	// running and populates caches whenever it finishes.
	TimedOut OutcomeKind = "timed_out"

	// Failed means a warm-up step returned an error. Startup continues.
	Failed OutcomeKind = "failed"
)

// Outcome is the result of the warm-up as observed by the waiter.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Step is a single named warm-up action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Preloader runs warm-up steps in a supervised background task.
// One attempt per process lifetime; there are no retries.
type Preloader struct {
	steps    []Step
	logger   *slog.Logger
	onFinish func(Outcome)
}

// Task is the handle to a started warm-up. The orchestrator retains it so
// the task's failure is observable instead of vanishing silently.
type Task struct {
	done    chan struct{}
	outcome Outcome
}

// New creates a preloader over the given steps. onFinish, if non-nil, is
// invoked exactly once when the task actually finishes, even if the waiter
// abandoned it long before; this is how a late completion still reaches the
// metrics and the audit trail. A nil logger falls back to slog.Default.
func New(steps []Step, logger *slog.Logger, onFinish func(Outcome)) *Preloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preloader{
		steps:    steps,
		logger:   logger.With("component", "preload"),
		onFinish: onFinish,
	}
}

// Start launches the warm-up in a background goroutine and returns its
// handle immediately. The context bounds the steps themselves, not the
// orchestrator's wait; cancelling it stops the task cooperatively.
func (p *Preloader) Start(ctx context.Context) *Task {
	task := &Task{done: make(chan struct{})}

	go func() {
		defer close(task.done)

		start := time.Now()
		for _, step := range p.steps {
			if err := ctx.Err(); err != nil {
				task.outcome = Outcome{Kind: Failed, Err: fmt.Errorf("warm-up cancelled: %w", err)}
				p.finish(task.outcome, start)
				return
			}

			stepStart := time.Now()
			if err := step.Run(ctx); err != nil {
				task.outcome = Outcome{Kind: Failed, Err: fmt.Errorf("warm-up step %q failed: %w", step.Name, err)}
				p.finish(task.outcome, start)
				return
			}
			p.logger.Debug("warm-up step finished",
				"step", step.Name,
				"duration", time.Since(stepStart),
			)
		}

		task.outcome = Outcome{Kind: Completed}
		p.finish(task.outcome, start)
	}()

	return task
}

func (p *Preloader) finish(outcome Outcome, start time.Time) {
	switch outcome.Kind {
	case Completed:
		p.logger.Info("warm-up completed", "duration", time.Since(start))
	default:
		p.logger.Warn("warm-up failed", "error", outcome.Err, "duration", time.Since(start))
	}
	if p.onFinish != nil {
		p.onFinish(outcome)
	}
}

// Wait blocks until the task finishes, the timeout elapses, or ctx is
// cancelled. On timeout it returns a TimedOut outcome and abandons the
// task: the underlying goroutine keeps running and reports through the
// preloader's onFinish callback whenever it completes.
func (t *Task) Wait(ctx context.Context, timeout time.Duration) Outcome {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return t.outcome
	case <-timer.C:
		return Outcome{Kind: TimedOut}
	case <-ctx.Done():
		return Outcome{Kind: TimedOut, Err: ctx.Err()}
	}
}

// Done exposes completion for tests and late observers.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
