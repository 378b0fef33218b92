package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "lalur_cutoff_advances_total") {
		t.Fatalf("expected body to contain lalur_cutoff_advances_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestImportRowCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveImportRow("ledger", "processed")
	metrics.ObserveImportRow("ledger", "processed")
	metrics.ObserveImportRow("ledger", "skipped")
	metrics.ObserveImportRun("ledger", "dry_run")

	if got := testutil.ToFloat64(metrics.importRows.WithLabelValues("ledger", "processed")); got != 2 {
		t.Fatalf("expected 2 processed rows, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.importRows.WithLabelValues("ledger", "skipped")); got != 1 {
		t.Fatalf("expected 1 skipped row, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.importRuns.WithLabelValues("ledger", "dry_run")); got != 1 {
		t.Fatalf("expected 1 dry run, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveImportRow("ledger", "processed")
	nilMetrics.ObserveCutoffAdvance()
}
