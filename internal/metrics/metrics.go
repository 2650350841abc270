// ABOUTME: Prometheus collectors for requests, permission fetches, dispatch fallbacks and gate decisions.
// ABOUTME: Provides the HTTP metrics middleware and the /metrics handler.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/2389/teamhub/internal/gates"
	"github.com/2389/teamhub/internal/logging"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/plugins/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SnapshotFetchesTotal  *prometheus.CounterVec
	SnapshotFetchDuration prometheus.Histogram

	DispatchFallbacksTotal *prometheus.CounterVec
	GateDecisionsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"area", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "teamhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"area"},
		),
		SnapshotFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamhub_permission_snapshot_fetches_total",
				Help: "Settled permission snapshot fetches by outcome",
			},
			[]string{"outcome", "stale"},
		),
		SnapshotFetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "teamhub_permission_snapshot_fetch_duration_seconds",
				Help:    "Permission snapshot fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		DispatchFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamhub_dispatch_fallbacks_total",
				Help: "Channel renders that fell back because no plugin handles the type",
			},
			[]string{"channel_type"},
		),
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamhub_gate_decisions_total",
				Help: "Permission gate renders by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SnapshotFetchesTotal,
		m.SnapshotFetchDuration,
		m.DispatchFallbacksTotal,
		m.GateDecisionsTotal,
	)
	return m
}

// Outcome label for a settled fetch
func fetchOutcome(o rbac.Outcome) string {
	if o.Err == nil {
		return "ok"
	}
	return string(o.Err.Kind)
}

// ObserveFetch records a settled permission snapshot fetch
func (m *Metrics) ObserveFetch(o rbac.Outcome) {
	m.SnapshotFetchesTotal.WithLabelValues(fetchOutcome(o), strconv.FormatBool(o.Stale)).Inc()
	m.SnapshotFetchDuration.Observe(o.Duration.Seconds())
}

// ObserveFallback records a dispatch for a type with no registered plugin
func (m *Metrics) ObserveFallback(t core.ChannelType) {
	label := string(t)
	if !t.Known() {
		// unknown types are unbounded, keep label cardinality fixed
		label = "other"
	}
	m.DispatchFallbacksTotal.WithLabelValues(label).Inc()
}

// ObserveGate records one gate render
func (m *Metrics) ObserveGate(kind gates.Kind, outcome gates.Outcome) {
	m.GateDecisionsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

// RegisterSessionGauge exposes the number of cached evaluators
func (m *Metrics) RegisterSessionGauge(entries func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "teamhub_permission_evaluators_cached",
			Help: "Number of cached permission evaluators",
		},
		func() float64 { return float64(entries()) },
	))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request counts and durations by area
func HTTPMetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			area := logging.AreaFromPath(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(area, r.Method, strconv.Itoa(rw.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(area).Observe(time.Since(start).Seconds())
		})
	}
}
