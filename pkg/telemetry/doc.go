// Package telemetry provides the observability stack of the migrator: structured logging
// with zerolog, tracing with OpenTelemetry and metrics with Prometheus.
//
// Initialize telemetry at startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Logging.Level = "debug"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// # Logging
//
// Components receive a zerolog.Logger derived from a component logger:
//
//	logger := tel.Logger.NewComponentLogger("web")
//	handler := web.NewHandler(opts, logger.Zerolog())
//
// # Tracing
//
// NewTracer installs the global tracer provider, so the wizard runner and the
// installers, which obtain their tracers from otel.Tracer, export through it. The
// exporter is otlp (gRPC), stdout or none.
//
// # Metrics
//
// Metrics implements the observer interfaces of the wizard runner and the installers:
//
//	runner := wizard.NewRunner(steps, wizard.WithObserver(tel.Metrics))
//	env.InstallerObserver = tel.Metrics
//
// and is exposed by the wizard server under /metrics, or by a separate server when
// MetricsConfig.ListenAddress is set.
package telemetry
