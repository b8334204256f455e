package probe

import (
	"encoding/json"
	"net/http"
	"time"
)

const rootBody = "TradeAI Companion Bot is running!"

// handleHealth is the liveness probe. It answers 200 while the process is
// alive and consults nothing: not the readiness flag, not the handler, not
// the preloader.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}

	s.writeText(w, r, "/health", http.StatusOK, "OK")
}

// handleReady is the readiness probe consumed by the load balancer. It
// answers 200 only when the orchestrator has set the readiness flag and the
// handler holds a live handle.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}

	if s.status != nil && s.status.Ready() {
		s.writeText(w, r, "/ready", http.StatusOK, "Ready")
		return
	}
	s.writeText(w, r, "/ready", http.StatusServiceUnavailable, "Not Ready")
}

// handleMetrics aggregates daemon state, the collector summary and cache
// statistics into one JSON payload. Any aggregation failure degrades to a
// generic 500 error payload; internal errors never propagate to the caller.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}

	payload, err := s.buildMetricsPayload()
	if err != nil {
		s.logger.Error("metrics aggregation failed", "error", err)
		s.writeJSON(w, r, "/metrics", http.StatusInternalServerError, map[string]any{
			"error": "metrics unavailable",
		})
		return
	}

	s.writeJSON(w, r, "/metrics", http.StatusOK, payload)
}

func (s *Server) buildMetricsPayload() (map[string]any, error) {
	payload := map[string]any{
		"uptime_seconds":          0.0,
		"ready":                   false,
		"telegram_handler_status": "inactive",
	}

	if s.status != nil {
		payload["uptime_seconds"] = time.Since(s.status.StartTime()).Seconds()
		payload["ready"] = s.status.Ready()
		if s.status.HandlerActive() {
			payload["telegram_handler_status"] = "active"
		}
	}

	if s.metrics != nil {
		summary, err := s.metrics.Summary()
		if err != nil {
			return nil, err
		}
		for name, value := range summary {
			payload[name] = value
		}
	}

	if s.cacheStats != nil {
		payload["cache_stats"] = s.cacheStats.Snapshot()
	}

	return payload, nil
}

// handleRoot serves the static informational response, independent of all
// state.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.record("/", http.StatusNotFound)
		http.NotFound(w, r)
		return
	}
	if !s.allowGet(w, r) {
		return
	}

	s.writeText(w, r, "/", http.StatusOK, rootBody)
}

func (s *Server) allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) writeText(w http.ResponseWriter, r *http.Request, endpoint string, code int, body string) {
	s.record(endpoint, code)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(body))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, endpoint string, code int, payload any) {
	s.record(endpoint, code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (s *Server) record(endpoint string, code int) {
	if s.recorder != nil {
		s.recorder.RecordProbeRequest(endpoint, code)
	}
}
