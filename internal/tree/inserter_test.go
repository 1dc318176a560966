package tree

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"cmstree/internal/db"
	"cmstree/internal/metrics"
	"cmstree/internal/mpath"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.ApplySchema(context.Background()))
	return d
}

func TestAddRoot_Sequence(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	codec := mpath.DefaultCodec()
	ins := NewInserter(d, codec)

	var prev int64
	for i, label := range []string{"R1", "R2", "R3"} {
		n := &db.Node{Label: label, Kind: "page"}
		tr, err := ins.AddRoot(ctx, db.ScopePages, n)
		require.NoError(t, err)
		require.Equal(t, NewRoot, tr)
		require.Equal(t, 1, n.Depth)

		step, err := codec.Step(n.Path)
		require.NoError(t, err)
		require.Greater(t, step, prev, "root %d", i)
		prev = step
	}

	roots, err := d.Roots(ctx, db.ScopePages)
	require.NoError(t, err)
	require.Len(t, roots, 3)
	require.Equal(t, []string{"0001", "0002", "0003"}, []string{roots[0].Path, roots[1].Path, roots[2].Path})
	require.Equal(t, "R3", roots[2].Label)
}

func TestAddRoot_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	ins := NewInserter(d, mpath.DefaultCodec())

	_, err := ins.AddRoot(ctx, db.ScopePages, &db.Node{Label: "page"})
	require.NoError(t, err)
	_, err = ins.AddRoot(ctx, db.ScopePages, &db.Node{Label: "page"})
	require.NoError(t, err)

	plugin := &db.Node{Label: "TextPlugin"}
	_, err = ins.AddRoot(ctx, db.ScopePlugins, plugin)
	require.NoError(t, err)
	require.Equal(t, "0001", plugin.Path)
}

func TestAddChild_UnderLeaf(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	codec := mpath.DefaultCodec()
	ins := NewInserter(d, codec)

	parent := &db.Node{Label: "parent"}
	_, err := ins.AddRoot(ctx, db.ScopePages, parent)
	require.NoError(t, err)

	const n = 40
	seen := make(map[string]bool)
	for i := 1; i <= n; i++ {
		child := &db.Node{Label: "child"}
		tr, err := ins.AddChild(ctx, parent, child)
		require.NoError(t, err)
		if i == 1 {
			require.Equal(t, NewChildOfLeaf, tr)
		} else {
			require.Equal(t, NewChildOfParentWithChildren, tr)
		}

		require.False(t, seen[child.Path], "duplicate path %s", child.Path)
		seen[child.Path] = true
		require.Equal(t, 2, child.Depth)
		require.Equal(t, parent.Path, codec.ParentPath(child.Path))

		step, err := codec.Step(child.Path)
		require.NoError(t, err)
		require.Equal(t, int64(i), step)
	}

	require.Equal(t, n, parent.NumChild)
	stored, err := d.GetNode(ctx, parent.ID)
	require.NoError(t, err)
	require.Equal(t, n, stored.NumChild)
}

func TestAddChild_ReloadedParent(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	ins := NewInserter(d, mpath.DefaultCodec())

	root := &db.Node{Label: "root"}
	_, err := ins.AddRoot(ctx, db.ScopePages, root)
	require.NoError(t, err)
	_, err = ins.AddChild(ctx, root, &db.Node{Label: "a"})
	require.NoError(t, err)

	// A fresh copy from the store continues after the stored last child.
	fresh, err := d.GetNode(ctx, root.ID)
	require.NoError(t, err)
	b := &db.Node{Label: "b"}
	tr, err := ins.AddChild(ctx, fresh, b)
	require.NoError(t, err)
	require.Equal(t, NewChildOfParentWithChildren, tr)
	require.Equal(t, "00010002", b.Path)

	grandchild := &db.Node{Label: "b.1"}
	_, err = ins.AddChild(ctx, b, grandchild)
	require.NoError(t, err)
	require.Equal(t, "000100020001", grandchild.Path)
	require.Equal(t, 3, grandchild.Depth)
}

func TestAddChild_InconsistentParent(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	ins := NewInserter(d, mpath.DefaultCodec())

	root := &db.Node{Label: "root"}
	_, err := ins.AddRoot(ctx, db.ScopePages, root)
	require.NoError(t, err)

	root.NumChild = 3
	_, err = ins.AddChild(ctx, root, &db.Node{Label: "x"})
	require.ErrorIs(t, err, ErrInconsistentParent)
}

func TestAddRoot_SegmentOverflow(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	codec, err := mpath.NewCodec("01", 1, 8)
	require.NoError(t, err)
	ins := NewInserter(d, codec)

	before := testutil.ToFloat64(metrics.PathOverflows.WithLabelValues(db.ScopePages))

	_, err = ins.AddRoot(ctx, db.ScopePages, &db.Node{Label: "only"})
	require.NoError(t, err)
	_, err = ins.AddRoot(ctx, db.ScopePages, &db.Node{Label: "too many"})
	require.ErrorIs(t, err, mpath.ErrPathOverflow)

	count, err := d.CountScope(ctx, db.ScopePages)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.PathOverflows.WithLabelValues(db.ScopePages)))
}

func TestAddChild_ColumnOverflowStopsBatch(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	codec, err := mpath.NewCodec(mpath.DefaultAlphabet, 4, 8)
	require.NoError(t, err)
	ins := NewInserter(d, codec)

	root := &db.Node{Label: "root"}
	_, err = ins.AddRoot(ctx, db.ScopePages, root)
	require.NoError(t, err)
	child := &db.Node{Label: "child"}
	_, err = ins.AddChild(ctx, root, child)
	require.NoError(t, err)

	err = d.InTx(ctx, func(tx *db.DB) error {
		txIns := NewInserter(tx, codec)
		if _, err := txIns.AddChild(ctx, root, &db.Node{Label: "sibling"}); err != nil {
			return err
		}
		_, err := txIns.AddChild(ctx, child, &db.Node{Label: "too deep"})
		return err
	})
	require.ErrorIs(t, err, mpath.ErrPathOverflow)

	// The whole batch rolled back, including the sibling and its numchild bump.
	count, err := d.CountScope(ctx, db.ScopePages)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	stored, err := d.GetNode(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.NumChild)
	stored, err = d.GetNode(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.NumChild)
}

func TestTransitionString(t *testing.T) {
	require.Equal(t, "new_root", NewRoot.String())
	require.Equal(t, "new_child_of_leaf", NewChildOfLeaf.String())
	require.Equal(t, "new_child_of_parent_with_children", NewChildOfParentWithChildren.String())
	require.Equal(t, "unknown", Transition(99).String())
}

func TestAddChild_MixedCaseAlphabet(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	codec, err := mpath.NewCodec("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz", 1, 8)
	require.NoError(t, err)
	ins := NewInserter(d, codec)

	// Roots 1..36 end at "a", with "A" at step 10.
	byPath := map[string]*db.Node{}
	for i := 0; i < 36; i++ {
		n := &db.Node{Label: "root"}
		_, err := ins.AddRoot(ctx, db.ScopePages, n)
		require.NoError(t, err)
		byPath[n.Path] = n
	}
	upper, lower := byPath["A"], byPath["a"]
	require.NotNil(t, upper)
	require.NotNil(t, lower)

	for i := 0; i < 3; i++ {
		_, err := ins.AddChild(ctx, lower, &db.Node{Label: "lower child"})
		require.NoError(t, err)
	}
	var got []string
	for i := 0; i < 2; i++ {
		n := &db.Node{Label: "upper child"}
		_, err := ins.AddChild(ctx, upper, n)
		require.NoError(t, err)
		got = append(got, n.Path)
	}
	require.Equal(t, []string{"A1", "A2"}, got)

	children, err := d.Children(ctx, upper)
	require.NoError(t, err)
	require.Len(t, children, 2)

	snap, err := SnapshotFromDB(ctx, d, db.ScopePages, codec)
	require.NoError(t, err)
	require.True(t, Check(snap, codec).OK())
}
