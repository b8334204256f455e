package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server is the dedicated Prometheus exposition server (default port 9090).
// It runs alongside the probe server and is torn down before it during
// shutdown: scrapes are sacrificial, probes are not.
type Server struct {
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownOnce sync.Once

	mu        sync.RWMutex
	isRunning bool
}

// NewServer creates an exposition server for the collector on the given
// address.
func NewServer(addr string, collector *Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine. It returns once the
// listener is bound, so a bind failure surfaces as a startup error rather
// than a background log line.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("metrics server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return fmt.Errorf("metrics server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		s.logger.Info("metrics server started", "address", s.httpServer.Addr)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the exposition server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.isRunning = false
		s.mu.Unlock()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("metrics server shutdown error: %w", err)
		}
	})

	return shutdownErr
}
