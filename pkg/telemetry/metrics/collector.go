// Package metrics provides Prometheus instrumentation for the companion
// daemon and the aggregated summary consumed by the probe server's JSON
// metrics endpoint.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tradeai-hq/companion/pkg/config"
)

// Collector owns all Prometheus metrics for the daemon. It registers them
// on a private registry so tests never collide on the global default, and it
// is the single component the orchestrator reports readiness to.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry
	start    time.Time

	ready          prometheus.Gauge
	handlerActive  prometheus.Gauge
	preloadOutcome *prometheus.CounterVec
	probeRequests  *prometheus.CounterVec
	updatesTotal   *prometheus.CounterVec
	cacheEntries   prometheus.Gauge
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
}

// NewCollector creates a metrics collector with the specified configuration.
// If registry is nil, a fresh private registry is used.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		start:    time.Now(),
	}

	c.ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "ready",
		Help:      "Whether the daemon has completed startup and accepts traffic (1=ready).",
	})
	c.handlerActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "handler_active",
		Help:      "Whether the Telegram handler is created and running (1=active).",
	})
	c.preloadOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "preload_outcome_total",
		Help:      "Outcome of the startup cache warm-up, by outcome.",
	}, []string{"outcome"})
	c.probeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "probe_requests_total",
		Help:      "Probe endpoint requests, by endpoint and status code.",
	}, []string{"endpoint", "code"})
	c.updatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "updates_total",
		Help:      "Inbound Telegram updates, by disposition.",
	}, []string{"status"})
	c.cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "cache_entries",
		Help:      "Current number of entries in the response cache.",
	})
	c.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "cache_hits_total",
		Help:      "Response cache hits.",
	})
	c.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "cache_misses_total",
		Help:      "Response cache misses.",
	})

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "uptime_seconds",
		Help:      "Seconds since the process captured its start timestamp.",
	}, func() float64 {
		return time.Since(c.start).Seconds()
	})

	registry.MustRegister(
		c.ready,
		c.handlerActive,
		c.preloadOutcome,
		c.probeRequests,
		c.updatesTotal,
		c.cacheEntries,
		c.cacheHits,
		c.cacheMisses,
		uptime,
	)

	return c
}

// SetReady reports the readiness flag. The orchestrator is the only caller.
func (c *Collector) SetReady(ready bool) {
	if !c.config.Enabled {
		return
	}
	c.ready.Set(boolValue(ready))
}

// SetHandlerActive reports whether the Telegram handler holds a live handle.
func (c *Collector) SetHandlerActive(active bool) {
	if !c.config.Enabled {
		return
	}
	c.handlerActive.Set(boolValue(active))
}

// RecordPreloadOutcome records the warm-up outcome ("completed", "timed_out",
// "failed"). Recorded once per process, but a late completion after an
// abandoned wait is recorded a second time under its final outcome.
func (c *Collector) RecordPreloadOutcome(outcome string) {
	if !c.config.Enabled {
		return
	}
	c.preloadOutcome.WithLabelValues(outcome).Inc()
}

// RecordProbeRequest records a served probe request.
func (c *Collector) RecordProbeRequest(endpoint string, code int) {
	if !c.config.Enabled {
		return
	}
	c.probeRequests.WithLabelValues(endpoint, fmt.Sprintf("%d", code)).Inc()
}

// RecordUpdate records an inbound Telegram update disposition
// ("handled", "rate_limited", "rejected", "unauthorized").
func (c *Collector) RecordUpdate(status string) {
	if !c.config.Enabled {
		return
	}
	c.updatesTotal.WithLabelValues(status).Inc()
}

// RecordCacheHit records a response cache hit.
func (c *Collector) RecordCacheHit() {
	if !c.config.Enabled {
		return
	}
	c.cacheHits.Inc()
}

// RecordCacheMiss records a response cache miss.
func (c *Collector) RecordCacheMiss() {
	if !c.config.Enabled {
		return
	}
	c.cacheMisses.Inc()
}

// UpdateCacheSize updates the cache entry gauge.
func (c *Collector) UpdateCacheSize(size int) {
	if !c.config.Enabled {
		return
	}
	c.cacheEntries.Set(float64(size))
}

// StartTime returns the captured process start timestamp.
func (c *Collector) StartTime() time.Time {
	return c.start
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Summary gathers every metric family on the registry into a flat
// name-to-value mapping for the JSON metrics endpoint. Counter and gauge
// samples are summed across label sets.
func (c *Collector) Summary() (map[string]any, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	summary := make(map[string]any, len(families))
	for _, fam := range families {
		var total float64
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		summary[fam.GetName()] = total
	}

	return summary, nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
