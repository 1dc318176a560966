package db

import (
	"context"
	"fmt"
)

// Schema DDL. Paths are unique per scope; scopes are independent forests.
const (
	createTreeNodes = `CREATE TABLE IF NOT EXISTS tree_nodes (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    path TEXT NOT NULL,
    depth INTEGER NOT NULL,
    numchild INTEGER NOT NULL DEFAULT 0,
    label TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL DEFAULT '',
    legacy_id INTEGER,
    created_at INTEGER NOT NULL,
    UNIQUE (scope, path)
);`

	createTreeNodesDepthIndex = `CREATE INDEX IF NOT EXISTS idx_tree_nodes_scope_depth
    ON tree_nodes (scope, depth, path);`

	createTreeNodesLegacyIndex = `CREATE INDEX IF NOT EXISTS idx_tree_nodes_legacy
    ON tree_nodes (scope, legacy_id);`
)

var schemaStatements = []string{
	createTreeNodes,
	createTreeNodesDepthIndex,
	createTreeNodesLegacyIndex,
}

// ApplySchema creates the tree tables if they do not exist yet.
func (d *DB) ApplySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
