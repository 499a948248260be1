package installer

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/migrations"
)

func TestSeedInstaller(t *testing.T) {
	ctx := context.Background()
	db, params := setupTarget(t)

	_, err := NewMigrationInstaller(db, migrations.NewRunner(params, zerolog.Nop()), zerolog.Nop()).Install(ctx)
	require.NoError(t, err)

	si := NewSeedInstaller(db, zerolog.Nop())
	installed, err := si.Install(ctx)
	require.NoError(t, err)
	assert.True(t, installed)

	title, found, err := db.ReadValue(ctx, `SELECT title FROM cms_user_group WHERE id = 1`)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Administrators", title)

	_, err = NewSeedInstaller(db, zerolog.Nop()).Install(ctx)
	assert.True(t, fault.IsAlreadyInstalled(err))
}

func TestSeedInstallerFailedLoadLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	db, params := setupTarget(t)

	_, err := NewMigrationInstaller(db, migrations.NewRunner(params, zerolog.Nop()), zerolog.Nop()).Install(ctx)
	require.NoError(t, err)

	// the last statement of the dump collides with this box
	_, err = db.Exec(ctx, `INSERT INTO cms_box (id, ord, title, content, layout, slot, visible, public) VALUES (1, 1, 'Custom', '', 'default', 'left', 1, 1)`)
	require.NoError(t, err)

	installed, err := NewSeedInstaller(db, zerolog.Nop()).Install(ctx)
	require.Error(t, err)
	assert.False(t, installed)

	for _, table := range []string{"cms_user_group", "cms_page"} {
		count, _, err := db.ReadValue(ctx, "SELECT COUNT(*) FROM "+table)
		require.NoError(t, err)
		assert.Equal(t, "0", count, table)
	}

	_, err = db.Exec(ctx, `DELETE FROM cms_box`)
	require.NoError(t, err)

	installed, err = NewSeedInstaller(db, zerolog.Nop()).Install(ctx)
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestSeedInstallerPartialContentNotInstalled(t *testing.T) {
	ctx := context.Background()
	db, params := setupTarget(t)

	_, err := NewMigrationInstaller(db, migrations.NewRunner(params, zerolog.Nop()), zerolog.Nop()).Install(ctx)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `INSERT INTO cms_user_group (id, title, descr, level, icon, color, blocked, reglist) VALUES (1, 'Administrators', '', 10001, '', '', 0, 0)`)
	require.NoError(t, err)

	installed, err := NewSeedInstaller(db, zerolog.Nop()).IsInstalled(ctx)
	require.NoError(t, err)
	assert.False(t, installed, "user groups alone do not make the content installed")
}

func TestSeedInstallerWithoutSchema(t *testing.T) {
	db, _ := setupTarget(t)

	installed, err := NewSeedInstaller(db, zerolog.Nop()).Install(context.Background())
	require.Error(t, err)
	assert.False(t, installed)
}

func TestSchemaHelpers(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTarget(t)
	schema := NewSchema(db)

	n, err := schema.LoadDump(ctx, strings.NewReader(`
CREATE TABLE sunlight_box (id INTEGER PRIMARY KEY, title TEXT);
CREATE TABLE sunlight_poll (id INTEGER PRIMARY KEY);
`), "sunlight_")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	missing, err := schema.MissingTables(ctx, []string{"box", "poll", "post"})
	require.NoError(t, err)
	assert.Equal(t, []string{"post"}, missing)

	cols, err := schema.MissingColumns(ctx, "box", []string{"id", "title", "content"})
	require.NoError(t, err)
	assert.Equal(t, []string{"content"}, cols)

	cols, err = schema.MissingColumns(ctx, "post", []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, cols)

	require.NoError(t, schema.DropTables(ctx, []string{"box", "post"}))
	missing, err = schema.MissingTables(ctx, []string{"box", "poll"})
	require.NoError(t, err)
	assert.Equal(t, []string{"box"}, missing)
}
