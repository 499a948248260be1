package steps

import (
	"context"
	"fmt"

	"github.com/openfroyo/migrator/pkg/installer"
	"github.com/openfroyo/migrator/pkg/migrations"
	"github.com/openfroyo/migrator/pkg/policy"
	"github.com/openfroyo/migrator/pkg/target"
)

// OperationMigrate is the policy operation checked before a migration.
const OperationMigrate = "migrate"

// Preflight evaluates the migration policies against the current state of the target.
func Preflight(ctx context.Context, engine *policy.Engine, db *target.DB, mi *installer.MigrationInstaller) (*policy.Result, error) {
	input, err := PreflightInput(ctx, db, mi)
	if err != nil {
		return nil, err
	}

	result, err := engine.Evaluate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policies: %w", err)
	}
	return result, nil
}

// PreflightInput describes the target for the migration policies.
func PreflightInput(ctx context.Context, db *target.DB, mi *installer.MigrationInstaller) (*policy.Input, error) {
	tables, err := db.ListTables(ctx, db.Prefix())
	if err != nil {
		return nil, err
	}

	missing, err := mi.MissingTables(ctx)
	if err != nil {
		return nil, err
	}

	version, _, err := installer.ReadVersion(ctx, db, migrations.VersionTable, migrations.VersionKey)
	if err != nil {
		return nil, err
	}

	params := db.Params()
	return &policy.Input{
		Operation:     OperationMigrate,
		Adapter:       params.Driver,
		Database:      params.Database,
		Prefix:        params.Prefix,
		Tables:        tables,
		MissingTables: missing,
		Version:       version,
		TargetVersion: migrations.TargetVersion,
	}, nil
}
