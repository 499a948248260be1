package target

import (
	"context"
	"database/sql"
	"fmt"
)

// PageTree maintains the denormalized tree columns of the page table: node_level is the
// distance from the root and node_depth the height of the subtree below a page.
type PageTree struct {
	db    *DB
	table string
}

// NewPageTree creates a page tree for the prefixed page table.
func NewPageTree(db *DB) *PageTree {
	return &PageTree{
		db:    db,
		table: db.Table("page"),
	}
}

type pageNode struct {
	id     int64
	parent sql.NullInt64
	level  int
	depth  int
}

// Refresh recomputes node_level and node_depth for every page. Running it twice yields the
// same result. A dangling parent counts as a root and a looping chain is cut at the first
// repeated page.
func (t *PageTree) Refresh(ctx context.Context) (int, error) {
	nodes, err := t.load(ctx)
	if err != nil {
		return 0, err
	}

	byID := make(map[int64]*pageNode, len(nodes))
	for _, n := range nodes {
		byID[n.id] = n
	}

	for _, n := range nodes {
		n.level = levelOf(n, byID)
	}

	for _, n := range nodes {
		// walk up and raise the depth of every ancestor
		distance := 1
		seen := map[int64]bool{n.id: true}
		for p := parentOf(n, byID); p != nil && !seen[p.id]; p = parentOf(p, byID) {
			seen[p.id] = true
			if distance > p.depth {
				p.depth = distance
			}
			distance++
		}
	}

	tx, err := t.db.SQL().BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "failed to begin transaction")
	}

	stmt := fmt.Sprintf("UPDATE %s SET node_level = ?, node_depth = ? WHERE id = ?", t.db.QuoteIdent(t.table))
	for _, n := range nodes {
		if _, err := tx.ExecContext(ctx, stmt, n.level, n.depth, n.id); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to update page %d: %w", n.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit page tree: %w", err)
	}

	return len(nodes), nil
}

func (t *PageTree) load(ctx context.Context) ([]*pageNode, error) {
	query := fmt.Sprintf("SELECT id, node_parent FROM %s ORDER BY id", t.db.QuoteIdent(t.table))

	rows, err := t.db.SQL().QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err, "failed to load pages")
	}
	defer rows.Close()

	var nodes []*pageNode
	for rows.Next() {
		n := &pageNode{}
		if err := rows.Scan(&n.id, &n.parent); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		nodes = append(nodes, n)
	}

	return nodes, rows.Err()
}

func parentOf(n *pageNode, byID map[int64]*pageNode) *pageNode {
	if !n.parent.Valid {
		return nil
	}
	return byID[n.parent.Int64]
}

func levelOf(n *pageNode, byID map[int64]*pageNode) int {
	level := 0
	seen := map[int64]bool{n.id: true}
	for p := parentOf(n, byID); p != nil && !seen[p.id]; p = parentOf(p, byID) {
		seen[p.id] = true
		level++
	}
	return level
}
