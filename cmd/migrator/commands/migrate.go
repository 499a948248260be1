package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/migrator/pkg/config"
	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/installer"
	"github.com/openfroyo/migrator/pkg/migrations"
	"github.com/openfroyo/migrator/pkg/policy"
	"github.com/openfroyo/migrator/pkg/steps"
	"github.com/openfroyo/migrator/pkg/telemetry"
)

// migrateResult is the JSON output of the migrate command.
type migrateResult struct {
	Migrated        bool     `json:"migrated"`
	AlreadyMigrated bool     `json:"already_migrated"`
	Version         string   `json:"version"`
	Warnings        []string `json:"warnings,omitempty"`
	PurgedEntries   int      `json:"purged_entries"`
}

func newMigrateCommand() *cobra.Command {
	var (
		yes       bool
		policyDir string
		cacheDir  string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the configured database without the wizard",
		Long: `Migrate the configured database to the current schema.

This runs the same work as the wizard's migration step:
  - Preflight policy checks (built-in and --policy-dir)
  - Schema migrations and page tree refresh
  - Cache purge (--cache-dir)

The migration changes the database in place and requires --yes.`,
		Example: `  # Migrate after checking the status
  migrator status
  migrator migrate --yes

  # Migrate with custom policies and purge the cache
  migrator migrate --yes --policy-dir ./policies --cache-dir ./system/cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("the migration changes the database in place, confirm it with --yes")
			}

			ctx := cmd.Context()
			tel, logger := commandTelemetry(cmd)

			db, env, err := openTarget(ctx, config.NewStore(configFile))
			if err != nil {
				return err
			}
			defer db.Close()

			var opts []installer.Option
			if tel != nil {
				opts = append(opts, installer.WithObserver(tel.Metrics))
			}
			mi := installer.NewMigrationInstaller(db, migrations.NewRunner(db.Params(), logger), logger, opts...)

			result := &migrateResult{Version: migrations.TargetVersion}

			migrated, err := mi.VersionMatches(ctx)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			if migrated {
				result.AlreadyMigrated = true
				return printMigrateResult(cmd, result)
			}

			engine, err := newPolicyEngine(ctx, logger, policyDir)
			if err != nil {
				return err
			}
			preflight, err := steps.Preflight(ctx, engine, db, mi)
			if err != nil {
				return fmt.Errorf("preflight failed: %w", err)
			}
			if tel != nil {
				tel.Metrics.RecordPolicyEvaluation(preflight.Allowed)
			}
			result.Warnings = warningMessages(preflight)
			if !preflight.Allowed {
				return fmt.Errorf("migration denied by policy: %s", strings.Join(preflight.Messages(), "; "))
			}

			op := telemetry.StartOperation(ctx, steps.OperationMigrate,
				telemetry.AttrTargetAdapter.String(env.Adapter),
				telemetry.AttrTargetDatabase.String(env.Name),
				telemetry.AttrTargetPrefix.String(env.TablePrefix),
			)
			installed, err := mi.Install(op.Ctx)
			if fault.IsAlreadyInstalled(err) {
				op.End(nil)
				result.AlreadyMigrated = true
				return printMigrateResult(cmd, result)
			}
			op.End(err)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			op.Logger.WithTarget(env.Adapter, env.Name, env.TablePrefix).
				WithField("duration", op.Timer.Duration().String()).
				Info("Migration finished")

			result.Migrated = installed
			result.PurgedEntries = steps.PurgeCache(cacheDir, logger)
			return printMigrateResult(cmd, result)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the migration")
	cmd.Flags().StringVar(&policyDir, "policy-dir", "", "directory with custom preflight policies")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory purged after the migration")

	return cmd
}

func warningMessages(r *policy.Result) []string {
	var msgs []string
	for _, w := range r.Warnings {
		msgs = append(msgs, w.Message)
	}
	return msgs
}

func printMigrateResult(cmd *cobra.Command, r *migrateResult) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), r)
	}

	w := cmd.OutOrStdout()
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", msg)
	}
	switch {
	case r.AlreadyMigrated:
		fmt.Fprintf(w, "The database is already migrated to version %s.\n", r.Version)
	case r.Migrated:
		fmt.Fprintf(w, "The database was migrated to version %s.\n", r.Version)
		if r.PurgedEntries > 0 {
			fmt.Fprintf(w, "Removed %d cache entries.\n", r.PurgedEntries)
		}
	default:
		fmt.Fprintln(w, "Nothing to migrate.")
	}
	return nil
}
