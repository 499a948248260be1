package target

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageTreeRefresh(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `CREATE TABLE test_page (
		id INTEGER PRIMARY KEY,
		node_parent INTEGER NULL,
		node_level INTEGER NOT NULL DEFAULT 0,
		node_depth INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)

	// 1
	// ├── 2
	// │   └── 4
	// └── 3
	// 5 (parent 99 does not exist)
	_, err = db.Exec(ctx, `INSERT INTO test_page (id, node_parent) VALUES
		(1, NULL), (2, 1), (3, 1), (4, 2), (5, 99)`)
	require.NoError(t, err)

	tree := NewPageTree(db)
	n, err := tree.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	want := map[int][2]int{
		1: {0, 2},
		2: {1, 1},
		3: {1, 0},
		4: {2, 0},
		5: {0, 0},
	}

	check := func() {
		rows, err := db.SQL().QueryContext(ctx, `SELECT id, node_level, node_depth FROM test_page`)
		require.NoError(t, err)
		defer rows.Close()

		for rows.Next() {
			var id, level, depth int
			require.NoError(t, rows.Scan(&id, &level, &depth))
			assert.Equal(t, want[id], [2]int{level, depth}, "page %d", id)
		}
		require.NoError(t, rows.Err())
	}
	check()

	// idempotent
	_, err = tree.Refresh(ctx)
	require.NoError(t, err)
	check()
}
