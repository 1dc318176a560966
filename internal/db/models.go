package db

// Forest scopes. Paths are only unique within a scope.
const (
	ScopePages   = "pages"
	ScopePlugins = "plugins"
)

// Node represents a row in the tree_nodes table
type Node struct {
	ID        string `json:"id"`
	Scope     string `json:"scope"`
	Path      string `json:"path"`
	Depth     int    `json:"depth"`
	NumChild  int    `json:"numchild"`
	Label     string `json:"label"`
	Kind      string `json:"kind"`       // "page", or a plugin type such as "TextPlugin"
	LegacyID  *int64 `json:"legacy_id"`  // row id in the pre-migration tables
	CreatedAt int64  `json:"created_at"` // Unix millis
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.NumChild == 0 }

// IsRoot reports whether the node sits at the top of its scope.
func (n *Node) IsRoot() bool { return n.Depth == 1 }
