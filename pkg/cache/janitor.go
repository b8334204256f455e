package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweeper is anything with periodic cleanup work. The cache and the rate
// limiter both qualify.
type Sweeper interface {
	Sweep() int
}

// sweepFunc adapts a cleanup function to Sweeper.
type sweepFunc func() int

func (f sweepFunc) Sweep() int { return f() }

// Janitor runs periodic cleanup sweeps on a cron schedule.
type Janitor struct {
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
	sweepers []Sweeper

	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor for the given cron schedule. The cache's
// expired-entry cleanup is always registered; additional sweepers may be
// attached with Add before Start.
func NewJanitor(schedule string, c *Cache, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		schedule: schedule,
		logger:   logger.With("component", "cache.janitor"),
		cron:     cron.New(),
		sweepers: []Sweeper{sweepFunc(c.Cleanup)},
	}
}

// Add registers an extra sweeper. Must be called before Start.
func (j *Janitor) Add(s Sweeper) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sweepers = append(j.sweepers, s)
}

// Start begins scheduled sweeping. An empty schedule disables the janitor.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.schedule == "" {
		j.logger.Info("cleanup schedule not configured, skipping janitor")
		return nil
	}

	if _, err := j.cron.AddFunc(j.schedule, j.sweep); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()
	j.running = true

	j.logger.Info("cache janitor started", "schedule", j.schedule)
	return nil
}

// sweep runs every registered sweeper once.
func (j *Janitor) sweep() {
	j.mu.Lock()
	sweepers := make([]Sweeper, len(j.sweepers))
	copy(sweepers, j.sweepers)
	j.mu.Unlock()

	total := 0
	for _, s := range sweepers {
		total += s.Sweep()
	}

	if total > 0 {
		j.logger.Info("cleanup sweep completed", "removed", total)
	} else {
		j.logger.Debug("cleanup sweep completed, nothing to remove")
	}
}

// Stop stops the scheduler and waits for a running sweep to complete.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		<-j.cron.Stop().Done()
		j.running = false
		j.logger.Info("cache janitor stopped")
	}
}
