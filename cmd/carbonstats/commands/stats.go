package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/carbonstats/internal/render"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
)

// NewStatsCommand creates the one-shot statistics command.
func NewStatsCommand() *cobra.Command {
	var (
		format  string
		top     int
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Compute statistics over the full collections and print them",
		Long: `Scan every project and credit in the configured store and print the
dashboard statistics. Text output ranks each breakdown; json output matches
the stats object of the HTTP API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if top < 0 {
				return fmt.Errorf("%w: --top %d", errNegativeFlag, top)
			}

			if format != render.FormatText && format != render.FormatJSON {
				return fmt.Errorf("%w: %q", render.ErrUnknownFormat, format)
			}

			env, err := openRuntime(cmd, observability.ModeCLI, nil)
			if err != nil {
				return err
			}
			defer closeRuntime(env)

			result, err := env.Engine.Compute(cmd.Context())
			if err != nil {
				return fmt.Errorf("compute stats: %w", err)
			}

			return render.Write(cmd.OutOrStdout(), result, render.Options{
				Format:  format,
				Top:     top,
				NoColor: noColor,
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", render.FormatText, "output format: text or json")
	cmd.Flags().IntVar(&top, "top", 0, "rows kept per breakdown in text output (0 keeps all)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored headings")

	return cmd
}
