package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/openfroyo/migrator/pkg/target"
)

//go:embed sql
var migrationsFS embed.FS

// Runner applies all pending migrations to a target database.
type Runner struct {
	params target.Params
	logger zerolog.Logger
}

// NewRunner creates a migration runner for the given target.
func NewRunner(params target.Params, logger zerolog.Logger) *Runner {
	return &Runner{
		params: params,
		logger: logger.With().Str("component", "migrations").Logger(),
	}
}

// RunAll applies every pending migration. It reports true only if all migrations were
// applied cleanly. A run that was interrupted earlier (dirty version) is resumed from the
// last clean version; every bundled migration is safe to re-apply.
func (r *Runner) RunAll(ctx context.Context) (bool, error) {
	dialect, err := target.LookupDialect(r.params.Driver)
	if err != nil {
		return false, err
	}

	// golang-migrate closes the handle it is given, so it gets its own.
	db, err := target.Open(dialect, r.params, true)
	if err != nil {
		return false, err
	}

	m, err := r.newMigrate(db)
	if err != nil {
		_ = db.Close()
		return false, err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			r.logger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Failed to close migration instance")
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := r.recoverDirty(m); err != nil {
		return false, err
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return false, fmt.Errorf("failed to read migration version: %w", err)
	}

	r.logger.Info().
		Uint("version", version).
		Str("prefix", r.params.Prefix).
		Msg("Migrations applied")

	return true, nil
}

func (r *Runner) newMigrate(db *target.DB) (*migrate.Migrate, error) {
	// Create migration source from embedded FS
	files, err := iofs.New(migrationsFS, "sql/"+db.Dialect().Name())
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	sourceDriver := newPrefixSource(files, target.PrefixToken, r.params.TablePrefix())

	// Create database driver
	var driver database.Driver
	switch db.Dialect().Name() {
	case "sqlite":
		driver, err = sqlite3.WithInstance(db.SQL(), &sqlite3.Config{
			MigrationsTable: r.params.TablePrefix() + BookkeepingTable,
		})
	case "mysql":
		driver, err = migratemysql.WithInstance(db.SQL(), &migratemysql.Config{
			MigrationsTable: r.params.TablePrefix() + BookkeepingTable,
			DatabaseName:    r.params.Database,
		})
	default:
		err = fmt.Errorf("no migration driver for adapter %s", db.Dialect().Name())
	}
	if err != nil {
		_ = sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, db.Dialect().Name(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, nil
}

// recoverDirty forces a dirty version back to the previous clean one.
func (r *Runner) recoverDirty(m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if !dirty {
		return nil
	}

	previous := int(version) - 1
	if previous < 1 {
		previous = database.NilVersion
	}

	r.logger.Warn().
		Uint("dirty_version", version).
		Int("forced_version", previous).
		Msg("Resuming interrupted migration run")

	if err := m.Force(previous); err != nil {
		return fmt.Errorf("failed to reset dirty migration %d: %w", version, err)
	}
	return nil
}
