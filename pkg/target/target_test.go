package target

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/migrator/pkg/fault"
)

// setupTestDB opens a file-backed SQLite target for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnector().Connect(context.Background(), Params{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "target.db"),
		Prefix:   "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestLookupDialect(t *testing.T) {
	d, err := LookupDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.DriverName())

	_, err = LookupDialect("oracle")
	assert.Error(t, err)

	assert.Equal(t, []string{"mysql", "sqlite"}, Dialects())
}

func TestMySQLDSN(t *testing.T) {
	d, err := LookupDialect("mysql")
	require.NoError(t, err)

	dsn := d.DSN(Params{Host: "db.local", User: "root", Password: "secret", Database: "cms"}, true)
	assert.True(t, strings.HasPrefix(dsn, "root:secret@tcp(db.local:3306)/cms?"), dsn)
	assert.Contains(t, dsn, "multiStatements=true")

	serverDSN := d.DSN(Params{Host: "db.local", Port: 3307, User: "root", Database: "cms"}, false)
	assert.True(t, strings.HasPrefix(serverDSN, "root@tcp(db.local:3307)/?"), serverDSN)

	assert.Equal(t, "`a``b`", d.QuoteIdent("a`b"))
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS `cms` COLLATE 'utf8mb4_unicode_ci'", d.CreateDatabaseStatement("cms"))
}

func TestConnectUnknownDriver(t *testing.T) {
	_, err := NewConnector().Connect(context.Background(), Params{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))
}

func TestConnectUnreachable(t *testing.T) {
	_, err := NewConnector().Connect(context.Background(), Params{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "missing", "dir", "target.db"),
	})
	require.Error(t, err)
	assert.True(t, fault.IsEnvironmentUnavailable(err))
}

func TestTables(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.Equal(t, "test_page", db.Table("page"))
	assert.Equal(t, []string{"test_a", "test_b"}, db.Tables([]string{"a", "b"}))

	for _, stmt := range []string{
		`CREATE TABLE test_setting (var TEXT PRIMARY KEY, val TEXT)`,
		`CREATE TABLE test_user (id INTEGER PRIMARY KEY, username TEXT, email TEXT)`,
		`CREATE TABLE other_user (id INTEGER PRIMARY KEY)`,
	} {
		_, err := db.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	tables, err := db.ListTables(ctx, "test_")
	require.NoError(t, err)
	assert.Equal(t, []string{"test_setting", "test_user"}, tables)

	exists, err := db.TableExists(ctx, "test_user")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.TableExists(ctx, "test_use")
	require.NoError(t, err)
	assert.False(t, exists)

	columns, err := db.ListColumns(ctx, "test_user")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "username", "email"}, columns)

	columns, err = db.ListColumns(ctx, "test_missing")
	require.NoError(t, err)
	assert.Empty(t, columns)

	require.NoError(t, db.DropTables(ctx, []string{"test_user", "test_missing"}))
	tables, err = db.ListTables(ctx, "test_")
	require.NoError(t, err)
	assert.Equal(t, []string{"test_setting"}, tables)
}

func TestReadValue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `CREATE TABLE test_setting (var TEXT PRIMARY KEY, val TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO test_setting (var, val) VALUES ('dbversion', '8.0.0'), ('empty', NULL)`)
	require.NoError(t, err)

	value, ok, err := db.ReadValue(ctx, `SELECT val FROM test_setting WHERE var = ?`, "dbversion")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "8.0.0", value)

	_, ok, err = db.ReadValue(ctx, `SELECT val FROM test_setting WHERE var = ?`, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = db.ReadValue(ctx, `SELECT val FROM test_setting WHERE var = ?`, "empty")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = db.ReadValue(ctx, `SELECT val FROM test_nothing`)
	assert.Error(t, err)
}

func TestCreateDatabaseSQLiteIsNoop(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.CreateDatabase(context.Background(), "ignored"))
}
