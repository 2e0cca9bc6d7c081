package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/carbonstats/internal/app"
	"github.com/Sumatoshi-tech/carbonstats/pkg/config"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store/sqlite"
)

// NewSeedCommand creates the fixture loading command.
func NewSeedCommand() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load a YAML or JSON fixture into the SQLite store",
		Long: `Load projects and credits from a fixture file into the configured SQLite
database. Projects are upserted by project_id and credits are appended.
With --replace both tables are cleared first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if cfg.Store.Backend != config.BackendSQLite {
				return fmt.Errorf("%w: store.backend is %q", errSeedNeedsSQLite, cfg.Store.Backend)
			}

			fixture, err := sqlite.LoadFixture(args[0])
			if err != nil {
				return err
			}

			db, err := app.OpenSQLite(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}

			stats, err := db.Seed(cmd.Context(), sqlite.SeedTables{
				Projects: cfg.Collections.Projects,
				Credits:  cfg.Collections.Credits,
			}, fixture, replace)
			if err != nil {
				return errors.Join(err, db.Close())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d projects and %d credits into %s\n",
				stats.Projects, stats.Credits, cfg.Store.SQLite.Path)

			return db.Close()
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "clear both tables before loading")

	return cmd
}
