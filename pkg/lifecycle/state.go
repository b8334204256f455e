// Package lifecycle implements the daemon orchestrator: the startup state
// machine, the ordered single-shot shutdown sequence, and the signal
// watcher. The orchestrator goroutine is the only writer of lifecycle state
// and the readiness flag; probes and tests read them concurrently.
package lifecycle

import (
	"fmt"
	"sync"
)

// State is a phase of the daemon lifecycle.
type State string

const (
	// StateCreated is the phase before any work has been done.
	StateCreated State = "created"

	// StateValidating covers configuration loading and the security gate.
	// No network listener exists in this phase.
	StateValidating State = "validating"

	// StateInitializing covers component construction, server startup and
	// the warm-up wait. Liveness answers in this phase; readiness does not.
	StateInitializing State = "initializing"

	// StateReady is steady-state operation.
	StateReady State = "ready"

	// StateShuttingDown covers the ordered teardown sequence.
	StateShuttingDown State = "shutting_down"

	// StateStopped is a clean terminal state.
	StateStopped State = "stopped"

	// StateCrashed is the terminal state after a validation failure or an
	// unrecoverable component error.
	StateCrashed State = "crashed"
)

// transitions is the set of legal state changes. Anything else is a
// programming error surfaced by machine.to.
var transitions = map[State][]State{
	StateCreated:      {StateValidating},
	StateValidating:   {StateInitializing, StateCrashed},
	StateInitializing: {StateReady, StateShuttingDown, StateCrashed},
	StateReady:        {StateShuttingDown},
	StateShuttingDown: {StateStopped, StateCrashed},
}

func (s State) String() string {
	return string(s)
}

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// machine guards the current lifecycle state. The orchestrator is the only
// caller of to; Current is safe for concurrent readers.
type machine struct {
	mu      sync.RWMutex
	current State
}

func newMachine() *machine {
	return &machine{current: StateCreated}
}

func (m *machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *machine) to(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return fmt.Errorf("invalid lifecycle transition from %s to %s", m.current, next)
}
