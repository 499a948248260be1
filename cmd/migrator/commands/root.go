package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/migrator/pkg/telemetry"
)

var (
	// Global flags
	configFile    string
	logLevel      string
	logFormat     string
	jsonOutput    bool
	traceExporter string
	traceEndpoint string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	var tel *telemetry.Telemetry

	rootCmd := &cobra.Command{
		Use:   "migrator",
		Short: "Migrator - database migration wizard",
		Long: `Migrator upgrades the database of a previous installation to the current schema.

It serves a step-by-step web wizard:
  - Language selection
  - Database configuration
  - Database migration, guarded by preflight policies
  - Links to the migrated site

The same migration can be inspected and run from the command line.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := telemetryConfig(version)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid telemetry configuration: %w", err)
			}

			var err error
			tel, err = telemetry.NewTelemetry(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}

			cmd.SetContext(tel.WithContext(cmd.Context()))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if tel == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tel.Shutdown(ctx)
		},
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "c", "migrator.yaml", "configuration file of the target database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", level, "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace-exporter", "none", "trace exporter (otlp, stdout, none)")
	rootCmd.PersistentFlags().StringVar(&traceEndpoint, "trace-endpoint", "localhost:4317", "OTLP collector endpoint")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSeedCommand())

	return rootCmd
}

// telemetryConfig maps the global flags onto the telemetry configuration.
func telemetryConfig(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Logging.Level = logLevel
	cfg.Logging.Format = logFormat
	cfg.Tracing.Exporter = traceExporter
	cfg.Tracing.Endpoint = traceEndpoint
	cfg.Tracing.Enabled = traceExporter != "none"
	cfg.Metrics.ListenAddress = metricsListen
	return cfg
}

// commandTelemetry returns the telemetry set up by the root command.
func commandTelemetry(cmd *cobra.Command) (*telemetry.Telemetry, zerolog.Logger) {
	tel := telemetry.FromTelemetryContext(cmd.Context())
	if tel == nil {
		return nil, zerolog.Nop()
	}
	return tel, tel.Logger.Zerolog()
}
