package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	importRows      *prometheus.CounterVec
	importRuns      *prometheus.CounterVec
	cutoffAdvances  prometheus.Counter
}

// NewMetrics initialises the registry and the service metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lalur_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lalur_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lalur_import_rows_total",
		Help: "Bulk import rows by record kind and outcome.",
	}, []string{"kind", "outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lalur_import_runs_total",
		Help: "Bulk import calls by record kind and mode.",
	}, []string{"kind", "mode"})
	cutoffs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lalur_cutoff_advances_total",
		Help: "Accepted accounting period cutoff changes.",
	})
	registry.MustRegister(requests, duration, rows, runs, cutoffs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		importRows:      rows,
		importRuns:      runs,
		cutoffAdvances:  cutoffs,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and duration per route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveImportRow counts one imported row. outcome is processed or skipped.
func (m *Metrics) ObserveImportRow(kind, outcome string) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(kind, outcome).Inc()
}

// ObserveImportRun counts one import call. mode is dry_run or apply.
func (m *Metrics) ObserveImportRun(kind, mode string) {
	if m == nil {
		return
	}
	m.importRuns.WithLabelValues(kind, mode).Inc()
}

// ObserveCutoffAdvance counts an accepted cutoff change.
func (m *Metrics) ObserveCutoffAdvance() {
	if m == nil {
		return
	}
	m.cutoffAdvances.Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
