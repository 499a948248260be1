package installer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/migrations"
	"github.com/openfroyo/migrator/pkg/target"
)

func setupTarget(t *testing.T) (*target.DB, target.Params) {
	t.Helper()

	params := target.Params{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "cms.db"),
		Prefix:   "cms",
	}
	db, err := target.NewConnector().Connect(context.Background(), params)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, params
}

type stubRunner struct {
	calls int
	ok    bool
	err   error
	apply func() error
}

func (r *stubRunner) RunAll(context.Context) (bool, error) {
	r.calls++
	if r.apply != nil {
		if err := r.apply(); err != nil {
			return false, err
		}
	}
	return r.ok, r.err
}

func TestMigrationInstaller(t *testing.T) {
	ctx := context.Background()
	db, params := setupTarget(t)

	mi := NewMigrationInstaller(db, migrations.NewRunner(params, zerolog.Nop()), zerolog.Nop())

	installed, err := mi.IsInstalled(ctx)
	require.NoError(t, err)
	assert.False(t, installed)

	missing, err := mi.MissingTables(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, migrations.BaseTables, missing)

	installed, err = mi.Install(ctx)
	require.NoError(t, err)
	assert.True(t, installed)

	matches, err := mi.VersionMatches(ctx)
	require.NoError(t, err)
	assert.True(t, matches)

	exists, err := db.TableExists(ctx, db.Table(migrations.BookkeepingTable))
	require.NoError(t, err)
	assert.False(t, exists, "bookkeeping table should be dropped")

	// A fresh installer for the next request sees the migrated target.
	_, err = NewMigrationInstaller(db, migrations.NewRunner(params, zerolog.Nop()), zerolog.Nop()).Install(ctx)
	assert.True(t, fault.IsAlreadyInstalled(err))
}

func TestMigrationInstallerRunnerFailure(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTarget(t)

	tests := []struct {
		name    string
		runner  *stubRunner
		wantErr error
	}{
		{name: "runner error", runner: &stubRunner{err: errors.New("syntax error")}},
		{name: "unclean run", runner: &stubRunner{ok: false}, wantErr: ErrMigrationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mi := NewMigrationInstaller(db, tt.runner, zerolog.Nop())

			installed, err := mi.Install(ctx)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.False(t, installed)
			assert.Equal(t, 1, tt.runner.calls)
		})
	}
}

func TestMigrationInstallerVersionOnly(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTarget(t)

	// A marker without the tables does not count as installed.
	_, err := db.Exec(ctx, `CREATE TABLE cms_setting (var TEXT PRIMARY KEY, val TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO cms_setting (var, val) VALUES ('dbversion', '8.0.0')`)
	require.NoError(t, err)

	mi := NewMigrationInstaller(db, &stubRunner{}, zerolog.Nop())

	matches, err := mi.VersionMatches(ctx)
	require.NoError(t, err)
	assert.True(t, matches)

	installed, err := mi.IsInstalled(ctx)
	require.NoError(t, err)
	assert.False(t, installed)
}

func TestVersionMarker(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTarget(t)
	gate := VersionMarker(db, "setting", "dbversion", "8.0.0")

	ok, err := gate.Satisfied(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "missing table")

	_, err = db.Exec(ctx, `CREATE TABLE cms_setting (var TEXT PRIMARY KEY, val TEXT)`)
	require.NoError(t, err)

	ok, err = gate.Satisfied(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "missing row")

	_, err = db.Exec(ctx, `INSERT INTO cms_setting (var, val) VALUES ('dbversion', '7.5.4')`)
	require.NoError(t, err)

	ok, err = gate.Satisfied(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "older version")

	_, err = db.Exec(ctx, `UPDATE cms_setting SET val = '8.0.0' WHERE var = 'dbversion'`)
	require.NoError(t, err)

	ok, err = gate.Satisfied(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllGates(t *testing.T) {
	calls := 0
	yes := GateFunc(func(context.Context) (bool, error) { calls++; return true, nil })
	no := GateFunc(func(context.Context) (bool, error) { calls++; return false, nil })

	ok, err := All(yes, no, yes).Satisfied(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)

	ok, err = All().Satisfied(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()

	ok, err := FileExists(filepath.Join(dir, "missing.yaml")).Satisfied(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = FileExists(dir).Satisfied(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "directories do not count")
}
