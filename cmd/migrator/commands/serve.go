package commands

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/openfroyo/migrator/pkg/config"
	"github.com/openfroyo/migrator/pkg/i18n"
	"github.com/openfroyo/migrator/pkg/policy"
	"github.com/openfroyo/migrator/pkg/steps"
	"github.com/openfroyo/migrator/pkg/target"
	"github.com/openfroyo/migrator/pkg/telemetry"
	"github.com/openfroyo/migrator/pkg/web"
)

// metricsListen is read by the root command when it sets up telemetry.
var metricsListen string

func newServeCommand() *cobra.Command {
	var (
		listen     string
		policyDir  string
		cacheDir   string
		baseURL    string
		basePath   string
		systemName string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the migration wizard",
		Long: `Serve the migration wizard over HTTP.

The wizard keeps no state between requests. Every request rebuilds its position from
the submitted form and the state of the database.

Custom policies in --policy-dir are reloaded when their files change.`,
		Example: `  # Serve on the default address
  migrator serve

  # Serve with custom policies and a separate metrics listener
  migrator serve --listen :8080 --policy-dir ./policies --metrics-listen :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tel, logger := commandTelemetry(cmd)

			engine, err := newPolicyEngine(ctx, logger, policyDir)
			if err != nil {
				return err
			}
			if policyDir != "" {
				loader := policy.NewLoader(logger)
				err := loader.Watch(ctx, []string{policyDir}, func(policies []policy.Policy) error {
					return engine.Replace(ctx, policies)
				})
				if err != nil {
					return err
				}
			}

			env := &steps.Env{
				Store:     config.NewStore(configFile),
				Connector: target.NewConnector(),
				Catalog:   i18n.NewCatalog(),
				Policies:  engine,
				CacheDir:  cacheDir,
				BaseURL:   baseURL,
				Logger:    logger,
			}

			var metrics *telemetry.Metrics
			if tel != nil {
				metrics = tel.Metrics
				env.InstallerObserver = tel.Metrics
				tel.StartMetricsServer()
			}

			handler := web.NewHandler(web.Options{
				Env:        env,
				Metrics:    metrics,
				BasePath:   basePath,
				SystemName: systemName,
			}, logger)

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", listen, err)
			}

			logger.Info().
				Str("config_file", configFile).
				Str("policy_dir", policyDir).
				Int("policies", len(engine.ListPolicies())).
				Msg("Starting migration wizard")

			return web.Serve(ctx, web.NewServer(listen, handler), ln, logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "address the wizard listens on")
	cmd.Flags().StringVar(&policyDir, "policy-dir", "", "directory with custom preflight policies")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory purged after the migration")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "public URL of the site, used for the final links")
	cmd.Flags().StringVar(&basePath, "base-path", "/", "path the wizard is reachable at")
	cmd.Flags().StringVar(&systemName, "system-name", "", "name shown in the page header")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "separate address for the metrics endpoint")

	return cmd
}
