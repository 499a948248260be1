package installer

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/openfroyo/migrator/pkg/migrations"
	"github.com/openfroyo/migrator/pkg/target"
)

// MigrationUnit names the schema migration unit.
const MigrationUnit = "schema"

// ErrMigrationFailed is returned when the migration runner reports an unclean run.
var ErrMigrationFailed = errors.New("migration run did not complete")

// MigrationRunner applies all pending migrations and reports whether every one applied cleanly.
type MigrationRunner interface {
	RunAll(ctx context.Context) (bool, error)
}

// MigrationInstaller installs the schema. It is installed when the version marker holds
// the target version and every base table exists.
type MigrationInstaller struct {
	*Installer
	db      *target.DB
	runner  MigrationRunner
	version Gate
	logger  zerolog.Logger
}

// NewMigrationInstaller creates the schema installer for db.
func NewMigrationInstaller(db *target.DB, runner MigrationRunner, logger zerolog.Logger, opts ...Option) *MigrationInstaller {
	mi := &MigrationInstaller{
		db:      db,
		runner:  runner,
		version: VersionMarker(db, migrations.VersionTable, migrations.VersionKey, migrations.TargetVersion),
		logger:  logger.With().Str("component", "installer").Str("unit", MigrationUnit).Logger(),
	}

	gate := All(mi.version, TablesPresent(db, migrations.BaseTables))
	opts = append([]Option{WithLogger(logger.With().Str("component", "installer").Logger())}, opts...)
	mi.Installer = New(MigrationUnit, gate, mi.migrate, opts...)

	return mi
}

// VersionMatches reports whether the version marker already equals the target version.
func (mi *MigrationInstaller) VersionMatches(ctx context.Context) (bool, error) {
	return mi.version.Satisfied(ctx)
}

// MissingTables returns the base tables not yet present.
func (mi *MigrationInstaller) MissingTables(ctx context.Context) ([]string, error) {
	return NewSchema(mi.db).MissingTables(ctx, migrations.BaseTables)
}

// migrate runs the migrations and, only on a clean run, refreshes the page tree and
// drops the bookkeeping table. Failures of the follow-up work are logged, not returned.
func (mi *MigrationInstaller) migrate(ctx context.Context) error {
	ok, err := mi.runner.RunAll(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMigrationFailed
	}

	if n, err := target.NewPageTree(mi.db).Refresh(ctx); err != nil {
		mi.logger.Warn().Err(err).Msg("Failed to refresh page tree")
	} else {
		mi.logger.Debug().Int("pages", n).Msg("Page tree refreshed")
	}

	if err := NewSchema(mi.db).DropTables(ctx, []string{migrations.BookkeepingTable}); err != nil {
		mi.logger.Warn().Err(err).Str("table", mi.db.Table(migrations.BookkeepingTable)).Msg("Failed to drop bookkeeping table")
	}

	return nil
}
