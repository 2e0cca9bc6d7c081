package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/carbonstats/pkg/geo"
)

// NewGeoCommand groups the continent table tools.
func NewGeoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Inspect and validate continent tables",
	}

	cmd.AddCommand(newGeoLookupCommand(), newGeoCheckCommand())

	return cmd
}

func newGeoLookupCommand() *cobra.Command {
	var tablePath string

	cmd := &cobra.Command{
		Use:   "lookup COUNTRY...",
		Short: "Print the continent each country is counted under",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("table") {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}

				tablePath = cfg.Geo.Table
			}

			continents, err := geo.Load(tablePath)
			if err != nil {
				return err
			}

			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.Style().Options.DrawBorder = false
			tbl.AppendHeader(table.Row{"Country", "Continent", "Did you mean"})

			for _, country := range args {
				tbl.AppendRow(table.Row{country, continents.ContinentOf(country), continents.Suggest(country)})
			}

			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())

			return nil
		},
	}

	cmd.Flags().StringVar(&tablePath, "table", "", "continent table extending the default (default: geo.table from config)")

	return cmd
}

func newGeoCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a continent table against its schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			continents, err := geo.LoadFile(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d countries across %d continents\n",
				args[0], continents.Len(), len(continents.Continents()))

			return nil
		},
	}
}
