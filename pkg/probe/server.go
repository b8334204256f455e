// Package probe provides the probe/endpoint HTTP server: liveness,
// readiness, JSON metrics aggregation and an informational root. Liveness
// and readiness are deliberately decoupled: /health answers 200 from the
// moment the listener is bound, while /ready reflects orchestrator state
// and nothing else.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"tradeai-hq/companion/pkg/cache"
	"tradeai-hq/companion/pkg/config"
)

// Status is the read-only view of orchestrator state consumed by the
// probes. The orchestrator is the single writer behind it.
type Status interface {
	// Ready reports whether the readiness flag is set and the handler
	// holds a live handle.
	Ready() bool

	// HandlerActive reports whether the Telegram handler is running.
	HandlerActive() bool

	// StartTime is the captured process start timestamp.
	StartTime() time.Time
}

// MetricsSource supplies the aggregated metrics summary.
type MetricsSource interface {
	Summary() (map[string]any, error)
}

// CacheStatsSource supplies the response cache statistics snapshot.
type CacheStatsSource interface {
	Snapshot() cache.Stats
}

// RequestRecorder counts served probe requests. May be nil.
type RequestRecorder interface {
	RecordProbeRequest(endpoint string, code int)
}

// ErrAlreadyRunning is returned when Start is called on a running server.
var ErrAlreadyRunning = errors.New("probe server is already running")

// Server is the probe HTTP server. It is started during initialization,
// before the handler is created, and is the last component torn down on
// shutdown so in-flight probes complete before the process exits.
type Server struct {
	cfg        config.ProbeConfig
	status     Status
	metrics    MetricsSource
	cacheStats CacheStatsSource
	recorder   RequestRecorder
	logger     *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once

	mu        sync.RWMutex
	isRunning bool
}

// NewServer creates a probe server. metrics, cacheStats and recorder may be
// nil; the corresponding sections then degrade rather than fail.
func NewServer(cfg config.ProbeConfig, status Status, metrics MetricsSource, cacheStats CacheStatsSource, recorder RequestRecorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:        cfg,
		status:     status,
		metrics:    metrics,
		cacheStats: cacheStats,
		recorder:   recorder,
		logger:     logger.With("component", "probe"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/", s.handleRoot)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.recoverMiddleware(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start binds the listener and begins serving in a background goroutine.
// Binding happens synchronously so a port conflict is a startup error, and
// /health answers from the moment Start returns.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.isRunning = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return fmt.Errorf("probe server failed to bind %s: %w", s.cfg.ListenAddress, err)
	}

	go func() {
		s.logger.Info("probe server started", "address", s.cfg.ListenAddress)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("probe server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight probes. Safe to call more than once; only
// the first call does any work.
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

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("probe server shutdown error: %w", err)
		} else {
			s.logger.Info("probe server stopped")
		}
	})

	return shutdownErr
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler exposes the route handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// recoverMiddleware guarantees probes never leak an internal panic: any
// handler fault becomes a plain 500 and the process keeps running.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("probe handler panic", "path", r.URL.Path, "panic", fmt.Sprint(rec))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
