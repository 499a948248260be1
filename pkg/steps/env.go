// Package steps provides the concrete wizard steps: language, configuration, database
// migration and completion.
//
// Process-wide collaborators live in Env. Each request gets its own Session, which
// memoizes the target connection for the lifetime of the request and is closed when the
// request is done.
package steps

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/openfroyo/migrator/pkg/config"
	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/i18n"
	"github.com/openfroyo/migrator/pkg/installer"
	"github.com/openfroyo/migrator/pkg/migrations"
	"github.com/openfroyo/migrator/pkg/policy"
	"github.com/openfroyo/migrator/pkg/target"
	"github.com/openfroyo/migrator/pkg/wizard"
)

// Env holds the collaborators shared by all requests.
type Env struct {
	// Store reads and writes the configuration file.
	Store *config.Store

	// Connector opens target connections.
	Connector target.Connector

	// Catalog matches Accept-Language headers to supported languages.
	Catalog *i18n.Catalog

	// Policies runs the migration preflight. Nil disables the preflight.
	Policies *policy.Engine

	// CacheDir is purged once the migration is done. Empty disables the purge.
	CacheDir string

	// BaseURL is the public URL of the site, used for the links on the last page.
	BaseURL string

	// Logger is the parent logger of all step loggers.
	Logger zerolog.Logger

	// InstallerObserver is attached to every installer, typically for metrics.
	InstallerObserver installer.Observer

	// NewRunner creates the migration runner. Defaults to migrations.NewRunner.
	NewRunner func(params target.Params, logger zerolog.Logger) installer.MigrationRunner
}

// Session is the per-request state shared by the steps of one request.
type Session struct {
	env            *Env
	acceptLanguage string
	logger         zerolog.Logger

	db        *target.DB
	dbErr     error
	connected bool
	migration *installer.MigrationInstaller
}

// NewSession creates the state of one request.
func NewSession(env *Env, acceptLanguage string) *Session {
	return &Session{
		env:            env,
		acceptLanguage: acceptLanguage,
		logger:         env.Logger.With().Str("component", "steps").Logger(),
	}
}

// Steps creates the wizard steps for the session, in order.
func (s *Session) Steps() []wizard.Step {
	return []wizard.Step{
		NewLanguageStep(s),
		NewConfigurationStep(s),
		NewMigrationStep(s),
		NewCompleteStep(s),
	}
}

// Env returns the shared collaborators.
func (s *Session) Env() *Env {
	return s.env
}

// Environment loads the default environment from the configuration file.
func (s *Session) Environment() (config.Environment, error) {
	env, found, err := s.env.Store.LoadDefault()
	if err != nil {
		return config.Environment{}, err
	}
	if !found {
		return config.Environment{}, fault.Validation("config.missing", "configuration file does not exist").WithArgs(s.env.Store.Path())
	}
	return env, nil
}

// DB returns the connection to the configured target. The result, including a failure,
// is kept until Reset.
func (s *Session) DB(ctx context.Context) (*target.DB, error) {
	if s.connected {
		return s.db, s.dbErr
	}
	s.connected = true

	env, err := s.Environment()
	if err != nil {
		s.dbErr = err
		return nil, err
	}

	s.db, s.dbErr = s.env.Connector.Connect(ctx, env.Params())
	if s.dbErr != nil {
		s.logger.Debug().Err(s.dbErr).Str("adapter", env.Adapter).Msg("Target not reachable")
	}
	return s.db, s.dbErr
}

// MigrationInstaller returns the schema installer for the configured target.
func (s *Session) MigrationInstaller(ctx context.Context) (*installer.MigrationInstaller, error) {
	if s.migration != nil {
		return s.migration, nil
	}

	db, err := s.DB(ctx)
	if err != nil {
		return nil, err
	}

	newRunner := s.env.NewRunner
	if newRunner == nil {
		newRunner = func(params target.Params, logger zerolog.Logger) installer.MigrationRunner {
			return migrations.NewRunner(params, logger)
		}
	}

	var opts []installer.Option
	if s.env.InstallerObserver != nil {
		opts = append(opts, installer.WithObserver(s.env.InstallerObserver))
	}

	s.migration = installer.NewMigrationInstaller(db, newRunner(db.Params(), s.env.Logger), s.env.Logger, opts...)
	return s.migration, nil
}

// Reset forgets the memoized connection, for example after the configuration changed.
func (s *Session) Reset() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close target connection")
		}
	}
	s.db = nil
	s.dbErr = nil
	s.connected = false
	s.migration = nil
}

// Close releases the session's connection.
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.connected = false
	s.migration = nil
	return err
}
