// Package metrics records scheduling and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "call_scheduler"

// Metrics owns a registry and the collectors registered on it. It implements
// application.Observer.
type Metrics struct {
	registry *prometheus.Registry

	proposals         *prometheus.CounterVec
	proposalDuration  *prometheus.HistogramVec
	proposalAttempts  prometheus.Histogram
	exhausted         prometheus.Counter
	attempts          *prometheus.CounterVec
	conflicts         *prometheus.CounterVec
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	activeConnections prometheus.Gauge
}

// New creates the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_total",
			Help:      "Committed proposals by strategy.",
		}, []string{"strategy"}),
		proposalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proposal_duration_seconds",
			Help:      "Time spent computing and committing a proposal.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"strategy"}),
		proposalAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proposal_candidates",
			Help:      "Candidates evaluated per committed proposal.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 150},
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_exhausted_total",
			Help:      "Proposals that found no valid slot.",
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_attempts_total",
			Help:      "Recorded call attempts by outcome.",
		}, []string{"outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_conflicts_total",
			Help:      "Conditional writes rejected by a version conflict.",
		}, []string{"operation"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Requests currently being served.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.proposals,
		m.proposalDuration,
		m.proposalAttempts,
		m.exhausted,
		m.attempts,
		m.conflicts,
		m.requests,
		m.requestDuration,
		m.activeConnections,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ProposalCommitted records a committed proposal.
func (m *Metrics) ProposalCommitted(strategy string, attempts int, elapsed time.Duration) {
	m.proposals.WithLabelValues(strategy).Inc()
	m.proposalDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.proposalAttempts.Observe(float64(attempts))
}

// ProposalExhausted records a proposal that found no slot.
func (m *Metrics) ProposalExhausted(int) {
	m.exhausted.Inc()
}

// AttemptRecorded records a call attempt.
func (m *Metrics) AttemptRecorded(outcome string) {
	m.attempts.WithLabelValues(outcome).Inc()
}

// ConflictDetected records a rejected conditional write.
func (m *Metrics) ConflictDetected(operation string) {
	m.conflicts.WithLabelValues(operation).Inc()
}

// statusWriter captures the status code written by the next handler.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so URL parameters do not explode the label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.activeConnections.Inc()
		defer m.activeConnections.Dec()

		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		endpoint := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := strconv.Itoa(wrapped.statusCode)
		m.requestDuration.WithLabelValues(r.Method, endpoint, status).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, endpoint, status).Inc()
	})
}
