package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faucetdb/touchline/internal/entity"
)

func newMigrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables and key sequences of the entity catalog",
		Long: `Create every table and key sequence the entity catalog needs. Objects that
already exist are left alone, so the command can be re-run safely.`,
		Example: `  touchline migrate
  touchline migrate --dry-run   # print the DDL for the configured driver`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			if dryRun {
				d := a.provider.Dialect()
				for _, name := range a.catalog.Names() {
					e, _ := a.catalog.Get(name)
					for _, stmt := range entity.Statements(d, e) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
					}
				}
				return nil
			}

			if err := entity.Migrate(context.Background(), a.provider, a.catalog, a.logger); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d entities on %s\n", len(a.catalog.Names()), a.cfg.Database.Driver)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements instead of running them")
	return cmd
}
