package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/carbonstats/pkg/mcp"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
	"github.com/Sumatoshi-tech/carbonstats/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes carbon project data as tools that AI agents
can discover and invoke:
  - carbon_stats: dashboard statistics with ranked breakdowns
  - carbon_projects: filtered, paginated project listing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(cmd, observability.ModeMCP, nil)
			if err != nil {
				return err
			}
			defer closeRuntime(env)

			srv := mcp.NewServer(mcp.ServerDeps{
				Stats:              env.Stats,
				Projects:           env.Store,
				ProjectsCollection: env.Config.Collections.Projects,
				DefaultLimit:       env.Config.API.DefaultLimit,
				MaxLimit:           env.Config.API.MaxLimit,
				Version:            version.Version,
				Logger:             env.Logger,
				Metrics:            env.RED,
				Tracer:             env.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}
}
