package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "carbonstats.requests.total"
	metricRequestDuration  = "carbonstats.request.duration.seconds"
	metricErrorsTotal      = "carbonstats.errors.total"
	metricInflightRequests = "carbonstats.inflight.requests"

	metricScanPages       = "carbonstats.scan.pages.total"
	metricScanRows        = "carbonstats.scan.rows.total"
	metricScanErrors      = "carbonstats.scan.errors.total"
	metricComputeDuration = "carbonstats.stats.compute.duration.seconds"
	metricStatsServed     = "carbonstats.stats.served.total"

	attrOp         = "op"
	attrStatus     = "status"
	attrCollection = "collection"
	attrSource     = "source"

	// StatusOK and StatusError are the status label values.
	StatusOK    = "ok"
	StatusError = "error"
)

// requestBuckets covers fast cached responses up to full scans of large tables.
var requestBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// REDMetrics holds the Rate, Error, Duration instruments for HTTP and MCP
// requests. A nil *REDMetrics records nothing.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED instruments from mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:    b.counter(metricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration:  b.histogram(metricRequestDuration, "Request duration in seconds", "s", requestBuckets...),
		errorsTotal:      b.counter(metricErrorsTotal, "Total number of failed requests", "{error}"),
		inflightRequests: b.upDownCounter(metricInflightRequests, "Number of in-flight requests", "{request}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a completed request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// Stats sources reported by ScanMetrics.RecordServed.
const (
	SourceComputed = "computed"
	SourceShared   = "shared"
	SourceCache    = "cache"
)

// ScanMetrics holds the instruments for full-collection scans and the
// statistics computed from them. A nil *ScanMetrics records nothing.
type ScanMetrics struct {
	pages    metric.Int64Counter
	rows     metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
	served   metric.Int64Counter
}

// NewScanMetrics creates scan instruments from mt.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &ScanMetrics{
		pages:    b.counter(metricScanPages, "Pages fetched from the store", "{page}"),
		rows:     b.counter(metricScanRows, "Rows read from the store", "{row}"),
		errors:   b.counter(metricScanErrors, "Scans aborted by an error", "{error}"),
		duration: b.histogram(metricComputeDuration, "Time to compute statistics over both collections", "s", requestBuckets...),
		served:   b.counter(metricStatsServed, "Statistics results handed to callers", "{result}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordScan records the pages and rows one collection scan consumed.
func (sm *ScanMetrics) RecordScan(ctx context.Context, collection string, pages, rows int, err error) {
	if sm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrCollection, collection))

	sm.pages.Add(ctx, int64(pages), attrs)
	sm.rows.Add(ctx, int64(rows), attrs)

	if err != nil {
		sm.errors.Add(ctx, 1, attrs)
	}
}

// RecordCompute records the duration and outcome of one aggregation.
func (sm *ScanMetrics) RecordCompute(ctx context.Context, duration time.Duration, err error) {
	if sm == nil {
		return
	}

	status := StatusOK
	if err != nil {
		status = StatusError
	}

	sm.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordServed counts a result handed out, labeled by where it came from.
func (sm *ScanMetrics) RecordServed(ctx context.Context, source string) {
	if sm == nil {
		return
	}

	sm.served.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}
