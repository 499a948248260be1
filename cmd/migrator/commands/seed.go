package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/migrator/pkg/config"
	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/installer"
	"github.com/openfroyo/migrator/pkg/migrations"
)

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the default content into a migrated database",
		Long: `Load the default content (user groups and the like) into a migrated database.

Nothing is loaded when the content is already present.`,
		Example: `  migrator seed -c /srv/site/migrator.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tel, logger := commandTelemetry(cmd)

			db, _, err := openTarget(ctx, config.NewStore(configFile))
			if err != nil {
				return err
			}
			defer db.Close()

			missing, err := installer.NewSchema(db).MissingTables(ctx, migrations.BaseTables)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("the database is not migrated, missing tables: %s", strings.Join(missing, ", "))
			}

			var opts []installer.Option
			if tel != nil {
				opts = append(opts, installer.WithObserver(tel.Metrics))
			}

			_, err = installer.NewSeedInstaller(db, logger, opts...).Install(ctx)
			switch {
			case fault.IsAlreadyInstalled(err):
				fmt.Fprintln(cmd.OutOrStdout(), "Default content is already present.")
			case err != nil:
				return fmt.Errorf("failed to load default content: %w", err)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Default content loaded.")
			}
			return nil
		},
	}

	return cmd
}
