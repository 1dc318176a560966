package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cmstree/internal/mpath"
)

const nodeColumns = `id, scope, path, depth, numchild, label, kind, legacy_id, created_at`

// scanNode scans a row into a Node. The row must have all nodeColumns in standard order.
func scanNode(scanner interface{ Scan(dest ...any) error }) (Node, error) {
	var n Node
	var legacy sql.NullInt64
	err := scanner.Scan(
		&n.ID, &n.Scope, &n.Path, &n.Depth, &n.NumChild,
		&n.Label, &n.Kind, &legacy, &n.CreatedAt,
	)
	if legacy.Valid {
		v := legacy.Int64
		n.LegacyID = &v
	}
	return n, err
}

func (d *DB) queryNodes(ctx context.Context, query string, args ...any) ([]Node, error) {
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// queryOne returns the single node matched by query, or nil if there is none.
func (d *DB) queryOne(ctx context.Context, query string, args ...any) (*Node, error) {
	n, err := scanNode(d.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNode returns a single node by ID
func (d *DB) GetNode(ctx context.Context, id string) (*Node, error) {
	n, err := d.queryOne(ctx, `SELECT `+nodeColumns+` FROM tree_nodes WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return n, nil
}

// GetNodeByPath returns the node stored at path within scope
func (d *DB) GetNodeByPath(ctx context.Context, scope, path string) (*Node, error) {
	n, err := d.queryOne(ctx, `SELECT `+nodeColumns+` FROM tree_nodes WHERE scope = ? AND path = ?`, scope, path)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, scope, path)
	}
	return n, nil
}

// SearchByIDPrefix finds nodes whose ID starts with the given prefix.
func (d *DB) SearchByIDPrefix(ctx context.Context, prefix string, limit int) ([]Node, error) {
	return d.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE id LIKE ? ORDER BY id LIMIT ?
	`, prefix+"%", limit)
}

// LastRoot returns the root with the greatest path in scope, or nil for an
// empty scope.
func (d *DB) LastRoot(ctx context.Context, scope string) (*Node, error) {
	return d.queryOne(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE scope = ? AND depth = 1
		ORDER BY path DESC LIMIT 1
	`, scope)
}

// LastChild returns the child of parent with the greatest path, or nil when
// parent is a leaf.
func (d *DB) LastChild(ctx context.Context, parent *Node) (*Node, error) {
	return d.queryOne(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE scope = ? AND depth = ? AND substr(path, 1, ?) = ?
		ORDER BY path DESC LIMIT 1
	`, parent.Scope, parent.Depth+1, len(parent.Path), parent.Path)
}

// Roots returns the top-level nodes of scope in sibling order
func (d *DB) Roots(ctx context.Context, scope string) ([]Node, error) {
	return d.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE scope = ? AND depth = 1 ORDER BY path
	`, scope)
}

// Children returns the immediate children of parent in sibling order
func (d *DB) Children(ctx context.Context, parent *Node) ([]Node, error) {
	return d.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE scope = ? AND depth = ? AND substr(path, 1, ?) = ?
		ORDER BY path
	`, parent.Scope, parent.Depth+1, len(parent.Path), parent.Path)
}

// Descendants returns the whole subtree below parent in pre-order, without
// parent itself.
func (d *DB) Descendants(ctx context.Context, parent *Node) ([]Node, error) {
	return d.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE scope = ? AND length(path) > ? AND substr(path, 1, ?) = ?
		ORDER BY path
	`, parent.Scope, len(parent.Path), len(parent.Path), parent.Path)
}

// NodesByPaths returns the nodes of scope stored at any of paths, ordered by
// path. Missing paths are silently absent from the result.
func (d *DB) NodesByPaths(ctx context.Context, scope string, paths []string) ([]Node, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(paths)+1)
	args = append(args, scope)
	for _, p := range paths {
		args = append(args, p)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(paths)), ",")
	return d.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE scope = ? AND path IN (`+placeholders+`)
		ORDER BY path
	`, args...)
}

// Ancestors returns the stored ancestors of n from the root down. Paths carry
// their ancestry, so this is a single IN lookup rather than a walk.
func (d *DB) Ancestors(ctx context.Context, n *Node, codec *mpath.Codec) ([]Node, error) {
	return d.NodesByPaths(ctx, n.Scope, codec.AncestorPaths(n.Path))
}

// ScopeNodes returns every node of scope in path order, which is pre-order
func (d *DB) ScopeNodes(ctx context.Context, scope string) ([]Node, error) {
	return d.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM tree_nodes WHERE scope = ? ORDER BY path
	`, scope)
}

// CountScope returns the number of nodes stored in scope
func (d *DB) CountScope(ctx context.Context, scope string) (int, error) {
	var count int
	err := d.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tree_nodes WHERE scope = ?`, scope).Scan(&count)
	return count, err
}

// Scopes lists every scope holding at least one node
func (d *DB) Scopes(ctx context.Context) ([]string, error) {
	rows, err := d.q.QueryContext(ctx, `SELECT DISTINCT scope FROM tree_nodes ORDER BY scope`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}
