package observability_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
)

func scrape(t *testing.T, prom *observability.Prometheus) string {
	t.Helper()

	rec := httptest.NewRecorder()
	prom.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	return string(body)
}

func TestScanMetrics_ExportedToPrometheus(t *testing.T) {
	t.Parallel()

	prom, err := observability.NewPrometheus()
	require.NoError(t, err)

	sm, err := observability.NewScanMetrics(prom.Meter())
	require.NoError(t, err)

	ctx := context.Background()
	sm.RecordScan(ctx, "carbon_projects", 3, 2001, nil)
	sm.RecordScan(ctx, "carbon_credits", 1, 5, errors.New("boom"))
	sm.RecordCompute(ctx, 20*time.Millisecond, nil)
	sm.RecordServed(ctx, observability.SourceCache)

	body := scrape(t, prom)

	assert.Contains(t, body, "carbonstats_scan_rows_total")
	assert.Contains(t, body, "carbonstats_scan_errors_total")
	assert.Contains(t, body, "carbonstats_stats_served_total")
	assert.Contains(t, body, `collection="carbon_projects"`)
	assert.Contains(t, body, `source="cache"`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()

	var (
		sm  *observability.ScanMetrics
		red *observability.REDMetrics
	)

	ctx := context.Background()

	assert.NotPanics(t, func() {
		sm.RecordScan(ctx, "c", 1, 1, nil)
		sm.RecordCompute(ctx, time.Second, errors.New("x"))
		sm.RecordServed(ctx, observability.SourceComputed)
		red.RecordRequest(ctx, "/", observability.StatusOK, time.Second)
		red.TrackInflight(ctx, "/")()
	})
}

func TestHTTPMiddleware_RecordsRED(t *testing.T) {
	t.Parallel()

	prom, err := observability.NewPrometheus()
	require.NoError(t, err)

	red, err := observability.NewREDMetrics(prom.Meter())
	require.NoError(t, err)

	failing := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		http.Error(rw, "store down", http.StatusInternalServerError)
	})

	handler := observability.HTTPMiddleware(nooptrace.NewTracerProvider().Tracer("t"), red, "/api/carbon-projects", failing)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/carbon-projects", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := scrape(t, prom)
	assert.Contains(t, body, "carbonstats_errors_total")
	assert.Contains(t, body, `op="/api/carbon-projects"`)
	assert.Contains(t, body, `status="error"`)
}

func TestHealthAndReady(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	failing := func(context.Context) error { return errors.New("store unreachable") }

	rec = httptest.NewRecorder()
	observability.ReadyHandler(failing).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	observability.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
}
