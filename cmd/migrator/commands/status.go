package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/migrator/pkg/config"
	"github.com/openfroyo/migrator/pkg/installer"
	"github.com/openfroyo/migrator/pkg/migrations"
	"github.com/openfroyo/migrator/pkg/target"
)

// statusReport describes the state of the configured target.
type statusReport struct {
	ConfigFile    string   `json:"config_file"`
	Configured    bool     `json:"configured"`
	Adapter       string   `json:"adapter,omitempty"`
	Database      string   `json:"database,omitempty"`
	Prefix        string   `json:"prefix,omitempty"`
	Reachable     bool     `json:"reachable"`
	Error         string   `json:"error,omitempty"`
	Version       string   `json:"version,omitempty"`
	TargetVersion string   `json:"target_version"`
	Migrated      bool     `json:"migrated"`
	MissingTables []string `json:"missing_tables,omitempty"`
	Seeded        bool     `json:"seeded"`
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the migration state of the configured database",
		Long: `Show the migration state of the configured database.

The report covers:
  - Whether the configuration file exists
  - Whether the database is reachable
  - The schema version marker and the tables still missing
  - Whether the default content is present`,
		Example: `  # Human-readable report
  migrator status

  # Report for another configuration file, as JSON
  migrator status -c /srv/site/migrator.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger := commandTelemetry(cmd)
			report := inspectTarget(cmd.Context(), config.NewStore(configFile), logger)

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}

	return cmd
}

// inspectTarget collects the status report. Failures end up in the report, not as errors.
func inspectTarget(ctx context.Context, store *config.Store, logger zerolog.Logger) *statusReport {
	report := &statusReport{
		ConfigFile:    store.Path(),
		TargetVersion: migrations.TargetVersion,
	}

	env, found, err := store.LoadDefault()
	if err != nil {
		report.Error = err.Error()
		return report
	}
	if !found {
		return report
	}
	report.Configured = true
	report.Adapter = env.Adapter
	report.Database = env.Name
	report.Prefix = env.TablePrefix

	db, err := target.NewConnector().Connect(ctx, env.Params())
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer db.Close()
	report.Reachable = true

	version, _, err := installer.ReadVersion(ctx, db, migrations.VersionTable, migrations.VersionKey)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Version = version

	missing, err := installer.NewSchema(db).MissingTables(ctx, migrations.BaseTables)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.MissingTables = missing
	report.Migrated = version == migrations.TargetVersion && len(missing) == 0

	if report.Migrated {
		seeded, err := installer.NewSeedInstaller(db, logger).IsInstalled(ctx)
		if err != nil {
			report.Error = err.Error()
			return report
		}
		report.Seeded = seeded
	}

	return report
}

func printStatus(w io.Writer, r *statusReport) {
	fmt.Fprintf(w, "Configuration:  %s\n", r.ConfigFile)
	if !r.Configured {
		fmt.Fprintln(w, "Status:         not configured")
		if r.Error != "" {
			fmt.Fprintf(w, "Error:          %s\n", r.Error)
		}
		return
	}

	fmt.Fprintf(w, "Target:         %s database %q, prefix %q\n", r.Adapter, r.Database, r.Prefix)
	if !r.Reachable {
		fmt.Fprintln(w, "Status:         unreachable")
		fmt.Fprintf(w, "Error:          %s\n", r.Error)
		return
	}

	version := r.Version
	if version == "" {
		version = "none"
	}
	fmt.Fprintf(w, "Schema version: %s (target %s)\n", version, r.TargetVersion)
	if len(r.MissingTables) > 0 {
		fmt.Fprintf(w, "Missing tables: %s\n", strings.Join(r.MissingTables, ", "))
	}

	switch {
	case r.Migrated && r.Seeded:
		fmt.Fprintln(w, "Status:         migrated")
	case r.Migrated:
		fmt.Fprintln(w, "Status:         migrated, default content missing")
	default:
		fmt.Fprintln(w, "Status:         migration pending")
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:          %s\n", r.Error)
	}
}
