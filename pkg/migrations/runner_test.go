package migrations

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/migrator/pkg/target"
)

func testParams(t *testing.T) target.Params {
	t.Helper()
	return target.Params{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "cms.db"),
		Prefix:   "cms",
	}
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	ok, err := NewRunner(params, zerolog.Nop()).RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	db, err := target.NewConnector().Connect(ctx, params)
	require.NoError(t, err)
	defer db.Close()

	tables, err := db.ListTables(ctx, db.Prefix())
	require.NoError(t, err)
	for _, table := range db.Tables(BaseTables) {
		assert.Contains(t, tables, table)
	}

	version, found, err := db.ReadValue(ctx, `SELECT val FROM cms_setting WHERE var = ?`, VersionKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, TargetVersion, version)

	exists, err := db.TableExists(ctx, db.Table(BookkeepingTable))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunAllTwice(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	for i := 0; i < 2; i++ {
		ok, err := NewRunner(params, zerolog.Nop()).RunAll(ctx)
		require.NoError(t, err, "run %d", i+1)
		assert.True(t, ok)
	}
}

func TestRunAllWithoutBookkeeping(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	_, err := NewRunner(params, zerolog.Nop()).RunAll(ctx)
	require.NoError(t, err)

	// Once the bookkeeping table is gone every migration runs again.
	db, err := target.NewConnector().Connect(ctx, params)
	require.NoError(t, err)
	require.NoError(t, db.DropTables(ctx, db.Tables([]string{BookkeepingTable})))
	require.NoError(t, db.Close())

	ok, err := NewRunner(params, zerolog.Nop()).RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunAllUnknownDriver(t *testing.T) {
	_, err := NewRunner(target.Params{Driver: "oracle"}, zerolog.Nop()).RunAll(context.Background())
	assert.Error(t, err)
}

func TestPrefixSource(t *testing.T) {
	files, err := iofs.New(migrationsFS, "sql/sqlite")
	require.NoError(t, err)

	src := newPrefixSource(files, target.PrefixToken, "cms_")
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)

	r, identifier, err := src.ReadUp(first)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "core_tables", identifier)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cms_setting")
	assert.NotContains(t, string(data), target.PrefixToken)

	_, err = src.Open("iofs://")
	assert.Error(t, err)
}
