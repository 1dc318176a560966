package tree

import (
	"context"
	"sort"
	"strings"

	"cmstree/internal/db"
	"cmstree/internal/mpath"
)

// NodeInfo is a lightweight node representation decoupled from DB types
type NodeInfo struct {
	ID       string
	Path     string
	Depth    int
	NumChild int
	Label    string
}

// Snapshot holds one scope in path order with a derived child index
type Snapshot struct {
	Scope    string
	Nodes    []*NodeInfo // path order
	ByPath   map[string]*NodeInfo
	Children map[string][]string // parent path -> child paths, derived from paths alone

	// Outside holds ancestors of a filtered subtree that exist in the full
	// scope but were left out of Nodes.
	Outside map[string]bool
	codec   *mpath.Codec
}

// NewSnapshot builds a Snapshot from raw nodes
func NewSnapshot(scope string, nodes []*NodeInfo, codec *mpath.Codec) *Snapshot {
	sorted := make([]*NodeInfo, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	byPath := make(map[string]*NodeInfo, len(sorted))
	for _, n := range sorted {
		byPath[n.Path] = n
	}

	children := make(map[string][]string)
	for _, n := range sorted {
		parent := codec.ParentPath(n.Path)
		if parent == "" {
			continue
		}
		children[parent] = append(children[parent], n.Path)
	}

	return &Snapshot{
		Scope:    scope,
		Nodes:    sorted,
		ByPath:   byPath,
		Children: children,
		codec:    codec,
	}
}

// SnapshotFromDB loads every node of scope
func SnapshotFromDB(ctx context.Context, d *db.DB, scope string, codec *mpath.Codec) (*Snapshot, error) {
	dbNodes, err := d.ScopeNodes(ctx, scope)
	if err != nil {
		return nil, err
	}

	nodes := make([]*NodeInfo, 0, len(dbNodes))
	for _, n := range dbNodes {
		nodes = append(nodes, &NodeInfo{
			ID:       n.ID,
			Path:     n.Path,
			Depth:    n.Depth,
			NumChild: n.NumChild,
			Label:    n.Label,
		})
	}
	return NewSnapshot(scope, nodes, codec), nil
}

// HasPath reports whether path is stored in the scope, inside or outside the snapshot
func (s *Snapshot) HasPath(path string) bool {
	_, ok := s.ByPath[path]
	return ok || s.Outside[path]
}

// FilterToSubtree returns a new snapshot holding root and its descendants.
// Stored ancestors of root are remembered so the subtree root is not
// reported as an orphan.
func (s *Snapshot) FilterToSubtree(root string) *Snapshot {
	var filtered []*NodeInfo
	for _, n := range s.Nodes {
		if strings.HasPrefix(n.Path, root) {
			filtered = append(filtered, n)
		}
	}
	sub := NewSnapshot(s.Scope, filtered, s.codec)
	for _, p := range s.codec.AncestorPaths(root) {
		if s.HasPath(p) {
			if sub.Outside == nil {
				sub.Outside = make(map[string]bool)
			}
			sub.Outside[p] = true
		}
	}
	return sub
}
