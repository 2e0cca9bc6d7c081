// Package app assembles the store, engine, and stats service described by a
// loaded configuration. Every command builds its runtime through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/carbonstats/pkg/carbon"
	"github.com/Sumatoshi-tech/carbonstats/pkg/config"
	"github.com/Sumatoshi-tech/carbonstats/pkg/geo"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store/rest"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store/sqlite"
)

// ErrNoConfig indicates New was called without a configuration.
var ErrNoConfig = errors.New("app requires a configuration")

// Deps carries the telemetry the runtime reports through. Nil fields disable
// the corresponding signal.
type Deps struct {
	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// App is a wired runtime. Close releases the store.
type App struct {
	Config *config.Config
	Store  store.Store
	Geo    *geo.Table
	Engine *carbon.Engine
	Stats  *carbon.StatsService
	RED    *observability.REDMetrics
	Logger *slog.Logger
	Tracer trace.Tracer
}

// New opens the configured store and builds the engine on top of it.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}

	if deps.Logger == nil {
		deps.Logger = observability.DiscardLogger()
	}

	table, err := geo.Load(cfg.Geo.Table)
	if err != nil {
		return nil, fmt.Errorf("load continent table: %w", err)
	}

	var (
		red     *observability.REDMetrics
		metrics *observability.ScanMetrics
	)

	if deps.Meter != nil {
		red, err = observability.NewREDMetrics(deps.Meter)
		if err != nil {
			return nil, fmt.Errorf("create request metrics: %w", err)
		}

		metrics, err = observability.NewScanMetrics(deps.Meter)
		if err != nil {
			return nil, fmt.Errorf("create scan metrics: %w", err)
		}
	}

	backend, err := OpenStore(ctx, cfg.Store, deps.Tracer)
	if err != nil {
		return nil, err
	}

	engine, err := carbon.NewEngine(backend, table, carbon.EngineOptions{
		ProjectsCollection: cfg.Collections.Projects,
		CreditsCollection:  cfg.Collections.Credits,
		PageSize:           cfg.Scan.PageSize,
		Workers:            cfg.Scan.Workers,
		Logger:             deps.Logger,
		Tracer:             deps.Tracer,
		Metrics:            metrics,
	})
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}

	return &App{
		Config: cfg,
		Store:  backend,
		Geo:    table,
		Engine: engine,
		Stats: carbon.NewStatsService(engine, carbon.ServiceOptions{
			TTL:     cfg.Stats.CacheTTL,
			Metrics: metrics,
		}),
		RED:    red,
		Logger: deps.Logger,
		Tracer: deps.Tracer,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}

	err := a.Store.Close()
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	return nil
}

// OpenStore builds the backend selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig, tracer trace.Tracer) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg)
	case config.BackendREST:
		client, err := rest.New(rest.Options{
			URL:           cfg.REST.URL,
			APIKey:        cfg.REST.APIKey,
			Schema:        cfg.REST.Schema,
			Timeout:       cfg.REST.Timeout,
			Retries:       cfg.REST.Retries,
			RetryInterval: cfg.REST.RetryInterval,
			Order:         cfg.REST.Order,
			Tracer:        tracer,
		})
		if err != nil {
			return nil, fmt.Errorf("open rest store: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}

// OpenSQLite opens the SQLite backend regardless of the selected backend.
// The seed command writes through it.
func OpenSQLite(ctx context.Context, cfg config.StoreConfig) (*sqlite.Store, error) {
	db, err := sqlite.Open(ctx, sqlite.Options{Path: cfg.SQLite.Path, MaxRows: cfg.SQLite.MaxRows})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	return db, nil
}
