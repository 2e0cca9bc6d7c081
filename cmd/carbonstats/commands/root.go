// Package commands implements the carbonstats CLI subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/carbonstats/internal/app"
	"github.com/Sumatoshi-tech/carbonstats/pkg/config"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
	"github.com/Sumatoshi-tech/carbonstats/pkg/version"
)

// ConfigFlag names the persistent flag selecting a config file.
const ConfigFlag = "config"

// NewRootCommand builds the carbonstats command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "carbonstats",
		Short: "Carbon project statistics over paginated data stores",
		Long: `carbonstats computes carbon project dashboard statistics by reading every
project and credit from a row-capped store, page by page.

Commands:
  stats     Compute statistics once and print them
  serve     Serve the project listing API with statistics
  mcp       Serve statistics and listings as MCP tools on stdio
  seed      Load a fixture into the SQLite store
  geo       Inspect and validate continent tables`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String(ConfigFlag, "", "config file (default: .carbonstats.yaml in the working or home directory)")

	root.AddCommand(
		NewStatsCommand(),
		NewServeCommand(),
		NewMCPCommand(),
		NewSeedCommand(),
		NewGeoCommand(),
		NewVersionCommand(),
	)

	return root
}

// loadConfig reads the file named by --config, or the default search path.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(ConfigFlag)
	if err != nil {
		return nil, fmt.Errorf("read --%s: %w", ConfigFlag, err)
	}

	return config.LoadConfig(path)
}

// runEnv is one command's wired app plus its telemetry lifecycle.
type runEnv struct {
	*app.App

	providers observability.Providers
}

// openRuntime loads config, starts telemetry for mode, and wires the app.
// A nil meter records metrics through the OTLP providers.
func openRuntime(cmd *cobra.Command, mode observability.AppMode, meter metric.Meter) (*runEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(cfg.Observability(mode, version.Version))
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	if meter == nil {
		meter = providers.Meter
	}

	wired, err := app.New(cmd.Context(), cfg, app.Deps{
		Logger: providers.Logger,
		Tracer: providers.Tracer,
		Meter:  meter,
	})
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return &runEnv{App: wired, providers: providers}, nil
}

// Close releases the store and flushes telemetry.
func (r *runEnv) Close() error {
	return errors.Join(r.App.Close(), r.providers.Shutdown(context.Background()))
}

// closeRuntime closes r and logs a failure instead of masking the command error.
func closeRuntime(r *runEnv) {
	err := r.Close()
	if err != nil {
		r.Logger.Warn("shutdown failed", "error", err)
	}
}
