package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"cmstree/internal/mpath"
)

// setupTestDB opens an in-memory SQLite database with the tree schema applied.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.ApplySchema(context.Background()))
	return d
}

func insertNode(t *testing.T, d *DB, scope, path string, numChild int) *Node {
	t.Helper()
	n := &Node{
		Scope:    scope,
		Path:     path,
		Depth:    len(path) / 4,
		NumChild: numChild,
		Label:    "node " + path,
		Kind:     "page",
	}
	require.NoError(t, d.InsertNode(context.Background(), n))
	return n
}

func paths(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return out
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	legacy := int64(42)
	n := &Node{Scope: ScopePages, Path: "0001", Depth: 1, Label: "Home", Kind: "page", LegacyID: &legacy}
	require.NoError(t, d.InsertNode(ctx, n))
	require.NotEmpty(t, n.ID)
	require.NotZero(t, n.CreatedAt)

	got, err := d.GetNode(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, *n, *got)

	byPath, err := d.GetNodeByPath(ctx, ScopePages, "0001")
	require.NoError(t, err)
	require.Equal(t, n.ID, byPath.ID)

	// Same path in another scope is a different forest.
	insertNode(t, d, ScopePlugins, "0001", 0)
	count, err := d.CountScope(ctx, ScopePlugins)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestInsert_DuplicatePathRejected(t *testing.T) {
	d := setupTestDB(t)
	insertNode(t, d, ScopePages, "0001", 0)

	err := d.InsertNode(context.Background(), &Node{Scope: ScopePages, Path: "0001", Depth: 1})
	require.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	_, err := d.GetNode(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = d.GetNodeByPath(ctx, ScopePages, "0001")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLastRootAndLastChild(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	last, err := d.LastRoot(ctx, ScopePages)
	require.NoError(t, err)
	require.Nil(t, last)

	r1 := insertNode(t, d, ScopePages, "0001", 2)
	insertNode(t, d, ScopePages, "00010001", 1)
	insertNode(t, d, ScopePages, "000100010001", 0)
	insertNode(t, d, ScopePages, "00010002", 0)
	r2 := insertNode(t, d, ScopePages, "0002", 0)

	last, err = d.LastRoot(ctx, ScopePages)
	require.NoError(t, err)
	require.Equal(t, "0002", last.Path)

	child, err := d.LastChild(ctx, r1)
	require.NoError(t, err)
	require.Equal(t, "00010002", child.Path)

	child, err = d.LastChild(ctx, r2)
	require.NoError(t, err)
	require.Nil(t, child)
}

func TestPrefixQueries_CaseSensitive(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	// One symbol per segment, upper and lower case are different steps.
	put := func(path string, depth, numChild int) *Node {
		n := &Node{Scope: ScopePages, Path: path, Depth: depth, NumChild: numChild, Label: path}
		require.NoError(t, d.InsertNode(ctx, n))
		return n
	}
	upper := put("A", 1, 1)
	lower := put("a", 1, 3)
	put("A1", 2, 0)
	put("a1", 2, 0)
	put("a2", 2, 0)
	put("a3", 2, 1)
	put("a3Z", 3, 0)

	last, err := d.LastChild(ctx, upper)
	require.NoError(t, err)
	require.Equal(t, "A1", last.Path)

	children, err := d.Children(ctx, upper)
	require.NoError(t, err)
	require.Equal(t, []string{"A1"}, paths(children))

	desc, err := d.Descendants(ctx, upper)
	require.NoError(t, err)
	require.Equal(t, []string{"A1"}, paths(desc))

	desc, err = d.Descendants(ctx, lower)
	require.NoError(t, err)
	require.Equal(t, []string{"a1", "a2", "a3", "a3Z"}, paths(desc))
}

func TestTreeQueries(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	r1 := insertNode(t, d, ScopePages, "0001", 2)
	insertNode(t, d, ScopePages, "0002", 0)
	insertNode(t, d, ScopePages, "00010002", 0)
	c1 := insertNode(t, d, ScopePages, "00010001", 1)
	leaf := insertNode(t, d, ScopePages, "000100010001", 0)
	insertNode(t, d, ScopePlugins, "00010003", 0)

	roots, err := d.Roots(ctx, ScopePages)
	require.NoError(t, err)
	require.Equal(t, []string{"0001", "0002"}, paths(roots))

	children, err := d.Children(ctx, r1)
	require.NoError(t, err)
	require.Equal(t, []string{"00010001", "00010002"}, paths(children))

	desc, err := d.Descendants(ctx, r1)
	require.NoError(t, err)
	require.Equal(t, []string{"00010001", "000100010001", "00010002"}, paths(desc))

	desc, err = d.Descendants(ctx, c1)
	require.NoError(t, err)
	require.Equal(t, []string{"000100010001"}, paths(desc))

	anc, err := d.NodesByPaths(ctx, ScopePages, []string{"0001", "00010001", "9999"})
	require.NoError(t, err)
	require.Equal(t, []string{"0001", "00010001"}, paths(anc))

	anc, err = d.Ancestors(ctx, leaf, mpath.DefaultCodec())
	require.NoError(t, err)
	require.Equal(t, []string{"0001", "00010001"}, paths(anc))

	anc, err = d.Ancestors(ctx, r1, mpath.DefaultCodec())
	require.NoError(t, err)
	require.Empty(t, anc)

	all, err := d.ScopeNodes(ctx, ScopePages)
	require.NoError(t, err)
	require.Equal(t, []string{"0001", "00010001", "000100010001", "00010002", "0002"}, paths(all))

	scopes, err := d.Scopes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{ScopePages, ScopePlugins}, scopes)
}

func TestIncrementNumChild_ExactPathOnly(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	insertNode(t, d, ScopePages, "0001", 0)
	insertNode(t, d, ScopePages, "00010001", 0)
	insertNode(t, d, ScopePlugins, "0001", 0)

	require.NoError(t, d.IncrementNumChild(ctx, ScopePages, "0001"))
	require.NoError(t, d.IncrementNumChild(ctx, ScopePages, "0001"))

	root, err := d.GetNodeByPath(ctx, ScopePages, "0001")
	require.NoError(t, err)
	require.Equal(t, 2, root.NumChild)

	child, err := d.GetNodeByPath(ctx, ScopePages, "00010001")
	require.NoError(t, err)
	require.Equal(t, 0, child.NumChild)

	other, err := d.GetNodeByPath(ctx, ScopePlugins, "0001")
	require.NoError(t, err)
	require.Equal(t, 0, other.NumChild)

	err = d.IncrementNumChild(ctx, ScopePages, "0009")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepairSetters(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	insertNode(t, d, ScopePages, "0001", 5)

	require.NoError(t, d.SetNumChild(ctx, ScopePages, "0001", 0))
	require.NoError(t, d.SetDepth(ctx, ScopePages, "0001", 1))

	n, err := d.GetNodeByPath(ctx, ScopePages, "0001")
	require.NoError(t, err)
	require.Equal(t, 0, n.NumChild)
	require.Equal(t, 1, n.Depth)

	require.ErrorIs(t, d.SetDepth(ctx, ScopePages, "0002", 1), ErrNotFound)
}

func TestInTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	boom := errors.New("boom")

	err := d.InTx(ctx, func(tx *DB) error {
		insertNode(t, tx, ScopePages, "0001", 0)
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := d.CountScope(ctx, ScopePages)
	require.NoError(t, err)
	require.Zero(t, count)

	err = d.InTx(ctx, func(tx *DB) error {
		insertNode(t, tx, ScopePages, "0001", 0)
		// Nested calls join the outer transaction.
		return tx.InTx(ctx, func(inner *DB) error {
			insertNode(t, inner, ScopePages, "0002", 0)
			return nil
		})
	})
	require.NoError(t, err)

	count, err = d.CountScope(ctx, ScopePages)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestSearchByIDPrefix(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	require.NoError(t, d.InsertNode(ctx, &Node{ID: "abc123-1", Scope: ScopePages, Path: "0001", Depth: 1}))
	require.NoError(t, d.InsertNode(ctx, &Node{ID: "abc123-2", Scope: ScopePages, Path: "0002", Depth: 1}))
	require.NoError(t, d.InsertNode(ctx, &Node{ID: "ffff00-1", Scope: ScopePages, Path: "0003", Depth: 1}))

	matches, err := d.SearchByIDPrefix(ctx, "abc123", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "abc123-1", matches[0].ID)
}
