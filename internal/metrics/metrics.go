// Package metrics implements the observability hooks with Prometheus
// collectors.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/tracemap/pkg/observability"
)

// Metrics holds every tracemap collector. It satisfies
// observability.LayoutHooks, CacheHooks and HTTPHooks.
type Metrics struct {
	layoutTotal    *prometheus.CounterVec
	layoutErrors   *prometheus.CounterVec
	layoutDuration *prometheus.HistogramVec
	layoutEntities prometheus.Histogram
	diagramNodes   prometheus.Histogram
	diagnostics    *prometheus.CounterVec
	cacheRequests  *prometheus.CounterVec
	cacheBytes     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpInFlight   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		layoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracemap_layout_total",
				Help: "Number of layout runs by strategy and engine.",
			},
			[]string{"strategy", "engine"},
		),
		layoutErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracemap_layout_error_total",
				Help: "Number of failed layout runs by strategy.",
			},
			[]string{"strategy"},
		),
		layoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracemap_layout_duration_seconds",
				Help:    "Time taken to compute a diagram.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		layoutEntities: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tracemap_layout_entities",
				Help:    "Number of entities per layout run.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		diagramNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tracemap_diagram_nodes",
				Help:    "Number of nodes per computed diagram.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracemap_diagnostics_total",
				Help: "Number of diagnostics by code and severity.",
			},
			[]string{"code", "severity"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracemap_cache_requests_total",
				Help: "Number of cache lookups by key type and result.",
			},
			[]string{"key_type", "result"},
		),
		cacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracemap_cache_written_bytes_total",
				Help: "Bytes written to the cache by key type.",
			},
			[]string{"key_type"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracemap_http_requests_total",
				Help: "Number of HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracemap_http_request_duration_seconds",
				Help:    "Time taken to serve HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracemap_http_in_flight_requests",
				Help: "Number of HTTP requests being served.",
			},
		),
	}
	reg.MustRegister(
		m.layoutTotal,
		m.layoutErrors,
		m.layoutDuration,
		m.layoutEntities,
		m.diagramNodes,
		m.diagnostics,
		m.cacheRequests,
		m.cacheBytes,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
	)
	return m
}

// Install registers m as the process-wide hooks.
func (m *Metrics) Install() {
	observability.SetLayoutHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnLayoutStart(_ context.Context, _ string, entities int) {
	m.layoutEntities.Observe(float64(entities))
}

func (m *Metrics) OnLayoutComplete(_ context.Context, strategy, engine string, nodes, _ int, d time.Duration, err error) {
	if err != nil {
		m.layoutErrors.WithLabelValues(strategy).Inc()
		return
	}
	m.layoutTotal.WithLabelValues(strategy, engine).Inc()
	m.layoutDuration.WithLabelValues(strategy).Observe(d.Seconds())
	m.diagramNodes.Observe(float64(nodes))
}

func (m *Metrics) OnDiagnostic(_ context.Context, code, severity string) {
	m.diagnostics.WithLabelValues(code, severity).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.httpInFlight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.LayoutHooks = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)
