// Package tree assigns materialized paths to new nodes and audits stored trees.
package tree

import (
	"context"
	"errors"
	"fmt"

	"cmstree/internal/ctxlog"
	"cmstree/internal/db"
	"cmstree/internal/metrics"
	"cmstree/internal/mpath"
)

// ErrInconsistentParent is returned when a parent claims children but none
// are stored under its path.
var ErrInconsistentParent = errors.New("parent numchild disagrees with stored children")

// Transition names the rule that assigned a node's path
type Transition int

const (
	NewRoot Transition = iota
	NewChildOfLeaf
	NewChildOfParentWithChildren
)

func (t Transition) String() string {
	switch t {
	case NewRoot:
		return "new_root"
	case NewChildOfLeaf:
		return "new_child_of_leaf"
	case NewChildOfParentWithChildren:
		return "new_child_of_parent_with_children"
	default:
		return "unknown"
	}
}

// Store is the persistence an Inserter writes through. *db.DB satisfies it.
type Store interface {
	LastRoot(ctx context.Context, scope string) (*db.Node, error)
	LastChild(ctx context.Context, parent *db.Node) (*db.Node, error)
	InsertNode(ctx context.Context, n *db.Node) error
	IncrementNumChild(ctx context.Context, scope, path string) error
}

// Inserter appends nodes to a tree. Sibling order is insertion order; it
// never moves or deletes nodes. Callers that need atomicity across the insert
// and the parent update run it against a transaction-bound store.
type Inserter struct {
	store Store
	codec *mpath.Codec
}

// NewInserter returns an Inserter writing to store with paths from codec
func NewInserter(store Store, codec *mpath.Codec) *Inserter {
	return &Inserter{store: store, codec: codec}
}

// AddRoot appends n after the last root of scope, or as the first root.
func (ins *Inserter) AddRoot(ctx context.Context, scope string, n *db.Node) (Transition, error) {
	last, err := ins.store.LastRoot(ctx, scope)
	if err != nil {
		return NewRoot, fmt.Errorf("finding last root of %s: %w", scope, err)
	}

	var path string
	if last != nil {
		path, err = ins.codec.Increment(last.Path)
	} else {
		path, err = ins.codec.BuildPath("", 1, 1)
	}
	if err != nil {
		return NewRoot, ins.pathError(scope, "", err)
	}

	n.Scope = scope
	n.Path = path
	n.Depth = 1
	n.NumChild = 0
	if err := ins.store.InsertNode(ctx, n); err != nil {
		return NewRoot, err
	}

	ins.record(ctx, n, NewRoot)
	return NewRoot, nil
}

// AddChild appends n as the last child of parent. On success parent.NumChild
// is incremented so the same parent value can take further children in a
// batch without being reloaded.
func (ins *Inserter) AddChild(ctx context.Context, parent *db.Node, n *db.Node) (Transition, error) {
	var (
		path string
		tr   Transition
		err  error
	)

	if parent.IsLeaf() {
		tr = NewChildOfLeaf
		path, err = ins.codec.BuildPath(parent.Path, parent.Depth+1, 1)
	} else {
		tr = NewChildOfParentWithChildren
		var last *db.Node
		last, err = ins.store.LastChild(ctx, parent)
		if err != nil {
			return tr, fmt.Errorf("finding last child of %s:%s: %w", parent.Scope, parent.Path, err)
		}
		if last == nil {
			return tr, fmt.Errorf("%w: %s:%s has numchild=%d", ErrInconsistentParent, parent.Scope, parent.Path, parent.NumChild)
		}
		path, err = ins.codec.Increment(last.Path)
	}
	if err != nil {
		return tr, ins.pathError(parent.Scope, parent.Path, err)
	}

	n.Scope = parent.Scope
	n.Path = path
	n.Depth = parent.Depth + 1
	n.NumChild = 0
	if err := ins.store.InsertNode(ctx, n); err != nil {
		return tr, err
	}
	if err := ins.store.IncrementNumChild(ctx, parent.Scope, parent.Path); err != nil {
		return tr, err
	}
	parent.NumChild++

	ins.record(ctx, n, tr)
	return tr, nil
}

func (ins *Inserter) pathError(scope, parentPath string, err error) error {
	if errors.Is(err, mpath.ErrPathOverflow) {
		metrics.PathOverflows.WithLabelValues(scope).Inc()
	}
	if parentPath == "" {
		return fmt.Errorf("assigning root path in %s: %w", scope, err)
	}
	return fmt.Errorf("assigning path under %s:%s: %w", scope, parentPath, err)
}

func (ins *Inserter) record(ctx context.Context, n *db.Node, tr Transition) {
	metrics.NodesInserted.WithLabelValues(n.Scope, tr.String()).Inc()
	ctxlog.FromContext(ctx).Debug("node inserted",
		"scope", n.Scope, "path", n.Path, "depth", n.Depth, "transition", tr.String())
}
