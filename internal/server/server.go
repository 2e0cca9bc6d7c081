// Package server exposes carbon project listings and dashboard statistics
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/carbonstats/pkg/carbon"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// Routes.
const (
	ProjectsRoute = "/api/carbon-projects"
	HealthRoute   = "/healthz"
	ReadyRoute    = "/readyz"
	MetricsRoute  = "/metrics"
)

// Query parameters accepted by ProjectsRoute.
const (
	paramCountry  = "country"
	paramCategory = "category"
	paramSearch   = "search"
	paramLimit    = "limit"
	paramOffset   = "offset"
)

// Listing defaults used when Deps leaves them zero.
const (
	DefaultLimit    = 50
	DefaultMaxLimit = 500
)

// Sentinel errors for query validation.
var (
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
	ErrInvalidOffset = errors.New("offset must be a non-negative integer")
)

// StatsSource supplies statistics over the full collections.
type StatsSource interface {
	Stats(ctx context.Context) (*carbon.Result, error)
}

// Backend is what the handlers read projects from.
type Backend interface {
	store.Reader
	store.Lister
	Ping(ctx context.Context) error
}

// Deps holds the handler dependencies. Zero-value optional fields use defaults.
type Deps struct {
	Store Backend
	Stats StatsSource

	// ProjectsCollection defaults to store.DefaultProjectsCollection.
	ProjectsCollection string

	DefaultLimit int
	MaxLimit     int

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.REDMetrics

	// MetricsHandler is mounted at MetricsRoute when set.
	MetricsHandler http.Handler
}

// Pagination echoes the effective window and the filtered total.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ProjectsResponse is the body of a successful ProjectsRoute request.
type ProjectsResponse struct {
	Projects   []store.Row    `json:"projects"`
	Stats      *carbon.Result `json:"stats"`
	Pagination Pagination     `json:"pagination"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	deps Deps
}

// NewHandler returns the routed API with every route traced and measured.
func NewHandler(deps Deps) http.Handler {
	if deps.ProjectsCollection == "" {
		deps.ProjectsCollection = store.DefaultProjectsCollection
	}

	if deps.DefaultLimit <= 0 {
		deps.DefaultLimit = DefaultLimit
	}

	if deps.MaxLimit < deps.DefaultLimit {
		deps.MaxLimit = max(DefaultMaxLimit, deps.DefaultLimit)
	}

	if deps.Logger == nil {
		deps.Logger = observability.DiscardLogger()
	}

	if deps.Tracer == nil {
		deps.Tracer = nooptrace.NewTracerProvider().Tracer(observability.InstrumentationName)
	}

	h := &handler{deps: deps}
	mux := http.NewServeMux()

	route := func(pattern, name string, next http.Handler) {
		mux.Handle(pattern, observability.HTTPMiddleware(deps.Tracer, deps.Metrics, name, next))
	}

	route("GET "+ProjectsRoute, ProjectsRoute, http.HandlerFunc(h.projects))
	route("GET "+HealthRoute, HealthRoute, observability.HealthHandler())
	route("GET "+ReadyRoute, ReadyRoute, observability.ReadyHandler(deps.Store.Ping))

	if deps.MetricsHandler != nil {
		mux.Handle("GET "+MetricsRoute, deps.MetricsHandler)
	}

	return mux
}

func (h *handler) projects(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	query, err := h.parseQuery(req)
	if err != nil {
		h.writeJSON(ctx, rw, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	resp := ProjectsResponse{
		Pagination: Pagination{Limit: query.Range.Limit, Offset: query.Range.Offset},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, listErr := h.deps.Store.List(gctx, h.deps.ProjectsCollection, query)
		if listErr != nil {
			return fmt.Errorf("list projects: %w", listErr)
		}

		resp.Projects = rows

		return nil
	})

	g.Go(func() error {
		total, countErr := h.deps.Store.Count(gctx, h.deps.ProjectsCollection, query.Filter)
		if countErr != nil {
			return fmt.Errorf("count projects: %w", countErr)
		}

		resp.Pagination.Total = total

		return nil
	})

	g.Go(func() error {
		stats, statsErr := h.deps.Stats.Stats(gctx)
		if statsErr != nil {
			return fmt.Errorf("compute stats: %w", statsErr)
		}

		resp.Stats = stats

		return nil
	})

	err = g.Wait()
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "carbon projects request failed", "error", err)
		h.writeJSON(ctx, rw, statusFor(err), errorResponse{Error: err.Error()})

		return
	}

	if resp.Projects == nil {
		resp.Projects = []store.Row{}
	}

	h.writeJSON(ctx, rw, http.StatusOK, resp)
}

// parseQuery reads filters and the page window. A missing limit uses the
// default; a larger one is clamped to the maximum.
func (h *handler) parseQuery(req *http.Request) (store.ListQuery, error) {
	values := req.URL.Query()

	query := store.ListQuery{
		Filter: store.Filter{
			Country:  strings.TrimSpace(values.Get(paramCountry)),
			Category: strings.TrimSpace(values.Get(paramCategory)),
			Search:   strings.TrimSpace(values.Get(paramSearch)),
		},
		Range: store.Range{Limit: h.deps.DefaultLimit},
	}

	if raw := values.Get(paramLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return query, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
		}

		query.Range.Limit = min(limit, h.deps.MaxLimit)
	}

	if raw := values.Get(paramOffset); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
		}

		query.Range.Offset = offset
	}

	return query, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidRange), errors.Is(err, store.ErrUnsupportedFilter):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeJSON(ctx context.Context, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		h.deps.Logger.ErrorContext(ctx, "failed to encode JSON response", "error", encodeErr)
	}
}

// Options configures Serve.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Serve listens on opts.Addr and serves handler until ctx is canceled, then
// drains in-flight requests for up to opts.ShutdownTimeout.
func Serve(ctx context.Context, handler http.Handler, opts Options) error {
	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", opts.Addr, err)
	}

	return ServeListener(ctx, listener, handler, opts)
}

// ServeListener is Serve over an existing listener.
func ServeListener(ctx context.Context, listener net.Listener, handler http.Handler, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(listener)
	}()

	logger.InfoContext(ctx, "http server listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
	defer cancel()

	logger.InfoContext(shutdownCtx, "http server shutting down")

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}
