package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the configuration file for on-disk changes. Because the
// running configuration is immutable, a detected change never reloads
// anything; it only invokes the notify callback (typically a warning that a
// restart is required to apply the change). Events are debounced so editors
// that write in multiple syscalls produce a single notification.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given configuration file path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		watcher:  fsw,
	}, nil
}

// Watch blocks until the context is cancelled, invoking notify (debounced)
// whenever the configuration file changes on disk.
func (w *Watcher) Watch(ctx context.Context, notify func()) error {
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Debug("configuration watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			w.trigger(notify)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			// Keep watching despite transient errors.
			w.logger.Warn("configuration watcher error", "error", err)
		}
	}
}

func (w *Watcher) trigger(notify func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, notify)
}
