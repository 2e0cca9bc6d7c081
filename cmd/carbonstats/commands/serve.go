package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/carbonstats/internal/server"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
)

// NewServeCommand creates the HTTP API command.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the carbon project API",
		Long: `Serve GET /api/carbon-projects with country, category, search, limit and
offset parameters. Every response carries statistics over the full
collections. Also serves /healthz, /readyz and Prometheus /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prom, err := observability.NewPrometheus()
			if err != nil {
				return fmt.Errorf("create prometheus exporter: %w", err)
			}

			env, err := openRuntime(cmd, observability.ModeServe, prom.Meter())
			if err != nil {
				return err
			}
			defer closeRuntime(env)

			cfg := env.Config
			if addr == "" {
				addr = cfg.Server.Addr()
			}

			handler := server.NewHandler(server.Deps{
				Store:              env.Store,
				Stats:              env.Stats,
				ProjectsCollection: cfg.Collections.Projects,
				DefaultLimit:       cfg.API.DefaultLimit,
				MaxLimit:           cfg.API.MaxLimit,
				Logger:             env.Logger,
				Tracer:             env.Tracer,
				Metrics:            env.RED,
				MetricsHandler:     prom.Handler,
			})

			return server.Serve(cmd.Context(), handler, server.Options{
				Addr:            addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				IdleTimeout:     cfg.Server.IdleTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				Logger:          env.Logger,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.host:server.port from config)")

	return cmd
}
