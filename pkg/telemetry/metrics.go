package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics provides Prometheus metrics for the migrator. It also observes the wizard
// runner and the installers.
type Metrics struct {
	config MetricsConfig

	// Request metrics
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Step metrics
	stepStates *prometheus.CounterVec

	// Installer metrics
	gateChecks      *prometheus.CounterVec
	installs        *prometheus.CounterVec
	installDuration *prometheus.HistogramVec

	// Policy metrics
	policyEvaluations *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Request metrics
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_requests_total",
				Help:      "Total number of wizard requests by the step they ended on",
			},
			[]string{"method", "step"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wizard_request_duration_seconds",
				Help:      "Duration of wizard requests in seconds",
				Buckets:   buckets,
			},
			[]string{"method"},
		),

		// Step metrics
		stepStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_evaluations_total",
				Help:      "Total number of step evaluations by resulting state",
			},
			[]string{"step", "state"},
		),

		// Installer metrics
		gateChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_checks_total",
				Help:      "Total number of installer gate checks",
			},
			[]string{"unit", "result"},
		),
		installs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "installs_total",
				Help:      "Total number of installer actions run",
			},
			[]string{"unit", "status"},
		),
		installDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "install_duration_seconds",
				Help:      "Duration of installer actions in seconds",
				Buckets:   buckets,
			},
			[]string{"unit"},
		),

		// Policy metrics
		policyEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_evaluations_total",
				Help:      "Total number of preflight policy evaluations",
			},
			[]string{"result"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of step errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of step errors by error code",
			},
			[]string{"code"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.stepStates,
		m.gateChecks,
		m.installs,
		m.installDuration,
		m.policyEvaluations,
		m.errorsByClass,
		m.errorsByCode,
	)

	return m, nil
}

// Request Metrics

// RecordRequest records a wizard request that ended on step.
func (m *Metrics) RecordRequest(method, step string, duration time.Duration) {
	if m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, step).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Step Metrics

// StepEvaluated records the state a step was evaluated to.
func (m *Metrics) StepEvaluated(key, state string) {
	if m.stepStates == nil {
		return
	}
	m.stepStates.WithLabelValues(key, state).Inc()
}

// Installer Metrics

// GateChecked records a gate check of an installer.
func (m *Metrics) GateChecked(unit string, satisfied bool, err error) {
	if m.gateChecks == nil {
		return
	}
	result := "unsatisfied"
	switch {
	case err != nil:
		result = "error"
	case satisfied:
		result = "satisfied"
	}
	m.gateChecks.WithLabelValues(unit, result).Inc()
}

// InstallFinished records a finished installer action.
func (m *Metrics) InstallFinished(unit string, installed bool, err error, duration time.Duration) {
	if m.installs == nil {
		return
	}
	status := "not_installed"
	switch {
	case err != nil:
		status = "failed"
	case installed:
		status = "installed"
	}
	m.installs.WithLabelValues(unit, status).Inc()
	m.installDuration.WithLabelValues(unit).Observe(duration.Seconds())
}

// Policy Metrics

// RecordPolicyEvaluation records a preflight evaluation.
func (m *Metrics) RecordPolicyEvaluation(allowed bool) {
	if m.policyEvaluations == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.policyEvaluations.WithLabelValues(result).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts a separate HTTP server exposing the metrics when a listen
// address is configured.
func (m *Metrics) StartMetricsServer(logger zerolog.Logger) *http.Server {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Str("addr", m.config.ListenAddress).Msg("Metrics server failed")
		}
	}()

	return server
}
