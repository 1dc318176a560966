package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertNode saves n as a new row. An empty ID is filled with a random UUID
// and a zero CreatedAt with the current time.
func (d *DB) InsertNode(ctx context.Context, n *Node) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().UnixMilli()
	}

	_, err := d.q.ExecContext(ctx, `
		INSERT INTO tree_nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Scope, n.Path, n.Depth, n.NumChild, n.Label, n.Kind, n.LegacyID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting node %s:%s: %w", n.Scope, n.Path, err)
	}
	return nil
}

// IncrementNumChild adds one to the child count of the node at exactly path.
// No prefix matching: rows of other subtrees are never touched.
func (d *DB) IncrementNumChild(ctx context.Context, scope, path string) error {
	return d.updateByPath(ctx, `UPDATE tree_nodes SET numchild = numchild + 1 WHERE scope = ? AND path = ?`,
		"incrementing numchild", scope, path)
}

// SetNumChild overwrites the child count of the node at path
func (d *DB) SetNumChild(ctx context.Context, scope, path string, numChild int) error {
	return d.updateByPath(ctx, `UPDATE tree_nodes SET numchild = ? WHERE scope = ? AND path = ?`,
		"setting numchild", numChild, scope, path)
}

// SetDepth overwrites the depth of the node at path
func (d *DB) SetDepth(ctx context.Context, scope, path string, depth int) error {
	return d.updateByPath(ctx, `UPDATE tree_nodes SET depth = ? WHERE scope = ? AND path = ?`,
		"setting depth", depth, scope, path)
}

// updateByPath runs an update whose last two arguments are scope and path,
// and fails with ErrNotFound unless exactly one row changed.
func (d *DB) updateByPath(ctx context.Context, query, what string, args ...any) error {
	res, err := d.q.ExecContext(ctx, query, args...)
	scope, path := args[len(args)-2], args[len(args)-1]
	if err != nil {
		return fmt.Errorf("%s for %v:%v: %w", what, scope, path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s for %v:%v: %w", what, scope, path, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: %v:%v", what, ErrNotFound, scope, path)
	}
	return nil
}
