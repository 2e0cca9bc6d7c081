package carbon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/carbonstats/pkg/geo"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
	"github.com/Sumatoshi-tech/carbonstats/pkg/scan"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// ErrNoReader indicates an engine built without a store.
var ErrNoReader = errors.New("carbon engine requires a store reader")

// EngineOptions configures an Engine. Zero values select defaults.
type EngineOptions struct {
	ProjectsCollection string
	CreditsCollection  string

	// PageSize must not exceed the store's row cap. Defaults to store.DefaultRowCap.
	PageSize int

	// Workers above 1 fetch that many pages concurrently.
	Workers int

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.ScanMetrics
}

// Engine computes dashboard statistics by scanning both collections in full.
// It holds no aggregate state and is safe for concurrent use.
type Engine struct {
	reader store.Reader
	lookup geo.Lookup
	opts   EngineOptions
}

// NewEngine validates opts and returns an engine reading from reader.
func NewEngine(reader store.Reader, lookup geo.Lookup, opts EngineOptions) (*Engine, error) {
	if reader == nil {
		return nil, ErrNoReader
	}

	if lookup == nil {
		lookup = geo.Default()
	}

	if opts.ProjectsCollection == "" {
		opts.ProjectsCollection = store.DefaultProjectsCollection
	}

	if opts.CreditsCollection == "" {
		opts.CreditsCollection = store.DefaultCreditsCollection
	}

	if opts.PageSize == 0 {
		opts.PageSize = store.DefaultRowCap
	}

	if opts.PageSize < 0 {
		return nil, fmt.Errorf("%w: %d", scan.ErrInvalidPageSize, opts.PageSize)
	}

	if opts.Logger == nil {
		opts.Logger = observability.DiscardLogger()
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer(observability.InstrumentationName)
	}

	return &Engine{reader: reader, lookup: lookup, opts: opts}, nil
}

// Compute scans projects, then credits, and returns fresh statistics.
func (e *Engine) Compute(ctx context.Context) (*Result, error) {
	start := time.Now()

	ctx, span := e.opts.Tracer.Start(ctx, "carbonstats.compute",
		trace.WithAttributes(
			attribute.String("store.projects", e.opts.ProjectsCollection),
			attribute.String("store.credits", e.opts.CreditsCollection),
			attribute.Int("scan.page_size", e.opts.PageSize),
			attribute.Int("scan.workers", e.opts.Workers),
		))
	defer span.End()

	projects := e.scanner(e.opts.ProjectsCollection, ProjectColumns)
	credits := e.scanner(e.opts.CreditsCollection, CreditColumns)

	result, err := Aggregate(ctx, Projects(projects.Rows(ctx)), Credits(credits.Rows(ctx)), e.lookup)

	e.record(ctx, span, projects, credits, err)
	e.opts.Metrics.RecordCompute(ctx, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.opts.Logger.ErrorContext(ctx, "statistics computation failed", "error", err)

		return nil, err
	}

	e.opts.Logger.InfoContext(ctx, "statistics computed",
		"projects", result.TotalProjects,
		"credits", result.TotalCredits,
		"countries", result.Countries,
		"duration", time.Since(start))

	return result, nil
}

func (e *Engine) scanner(collection string, columns []string) *scan.Scanner {
	return scan.New(e.reader, scan.Request{
		Collection: collection,
		Columns:    columns,
		PageSize:   e.opts.PageSize,
		Workers:    e.opts.Workers,
	})
}

func (e *Engine) record(ctx context.Context, span trace.Span, projects, credits *scan.Scanner, err error) {
	var pageErr *scan.PageError

	failed := ""
	if errors.As(err, &pageErr) {
		failed = pageErr.Collection
	}

	for collection, s := range map[string]*scan.Scanner{
		e.opts.ProjectsCollection: projects,
		e.opts.CreditsCollection:  credits,
	} {
		var scanErr error
		if collection == failed {
			scanErr = err
		}

		e.opts.Metrics.RecordScan(ctx, collection, s.Pages(), s.RowsRead(), scanErr)
		e.opts.Logger.DebugContext(ctx, "collection scanned",
			"collection", collection, "pages", s.Pages(), "rows", s.RowsRead())
	}

	span.SetAttributes(
		attribute.Int("scan.projects.rows", projects.RowsRead()),
		attribute.Int("scan.credits.rows", credits.RowsRead()),
	)
}
