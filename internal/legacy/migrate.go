package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmstree/internal/config"
	"cmstree/internal/ctxlog"
	"cmstree/internal/db"
	"cmstree/internal/metrics"
	"cmstree/internal/mpath"
	"cmstree/internal/tree"
)

// Migration errors
var (
	// ErrOrphanedNode is returned under the abort policy when a legacy row
	// references a parent that was not converted before it.
	ErrOrphanedNode = errors.New("legacy row references a missing parent")

	// ErrAlreadyMigrated is returned when the target scope already holds nodes.
	ErrAlreadyMigrated = errors.New("target scope is not empty")

	// ErrUnknownForest is returned for a forest name other than pages or plugins.
	ErrUnknownForest = errors.New("unknown forest")
)

// Forest names one independent legacy tree set
type Forest string

const (
	ForestPages   Forest = "pages"
	ForestPlugins Forest = "plugins"
)

// Forests lists every forest in migration order
var Forests = []Forest{ForestPages, ForestPlugins}

// ParseForest accepts "pages" or "plugins"
func ParseForest(s string) (Forest, error) {
	switch Forest(s) {
	case ForestPages, ForestPlugins:
		return Forest(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownForest, s)
	}
}

// Scope returns the tree scope the forest is written into
func (f Forest) Scope() string {
	if f == ForestPlugins {
		return db.ScopePlugins
	}
	return db.ScopePages
}

// Result summarizes one forest pass
type Result struct {
	Forest   Forest        `json:"forest"`
	Read     int           `json:"read"`
	Migrated int           `json:"migrated"`
	Orphans  int           `json:"orphans"`
	Roots    int           `json:"roots"`
	MaxDepth int           `json:"max_depth"`
	Duration time.Duration `json:"duration"`

	// Fingerprint hashes the converted paths and labels; reruns over the same
	// legacy rows produce the same value.
	Fingerprint string `json:"fingerprint"`
}

// Migrator converts legacy forests into tree_nodes.
type Migrator struct {
	d      *db.DB
	reader *Reader
	codec  *mpath.Codec
	policy config.OrphanPolicy
}

// NewMigrator returns a Migrator reading legacy tables from the same database it writes to
func NewMigrator(d *db.DB, codec *mpath.Codec, policy config.OrphanPolicy) *Migrator {
	return &Migrator{
		d:      d,
		reader: NewReader(d.Conn()),
		codec:  codec,
		policy: policy,
	}
}

// MigrateAll converts pages then plugins, each in its own transaction. It
// stops at the first forest that fails.
func (m *Migrator) MigrateAll(ctx context.Context) ([]*Result, error) {
	var results []*Result
	for _, f := range Forests {
		res, err := m.Migrate(ctx, f)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Migrate converts one forest in a single transaction. Rows are visited in
// legacy traversal order; roots are appended after the last root and every
// other row under its already converted parent, so sibling order survives.
// Any insertion error, path overflow included, rolls the whole forest back.
func (m *Migrator) Migrate(ctx context.Context, forest Forest) (*Result, error) {
	start := time.Now()
	log := ctxlog.FromContext(ctx).With("forest", string(forest))

	rows, err := m.readForest(ctx, forest)
	if err != nil {
		return nil, err
	}
	log.Info("legacy rows loaded", "rows", len(rows))

	res := &Result{Forest: forest, Read: len(rows)}
	scope := forest.Scope()

	err = m.d.InTx(ctx, func(tx *db.DB) error {
		existing, err := tx.CountScope(ctx, scope)
		if err != nil {
			return fmt.Errorf("counting %s: %w", scope, err)
		}
		if existing > 0 {
			return fmt.Errorf("%w: %s holds %d nodes", ErrAlreadyMigrated, scope, existing)
		}

		ins := tree.NewInserter(tx, m.codec)
		converted := make(map[int64]*db.Node, len(rows))

		for _, row := range rows {
			legacyID := row.ID
			n := &db.Node{Label: row.Label, Kind: row.Kind, LegacyID: &legacyID}

			if row.ParentID == nil {
				if _, err := ins.AddRoot(ctx, scope, n); err != nil {
					return fmt.Errorf("migrating %s row %d: %w", forest, row.ID, err)
				}
				res.Roots++
			} else {
				parent, ok := converted[*row.ParentID]
				if !ok {
					if m.policy == config.OrphanAbort {
						return fmt.Errorf("%w: %s row %d, parent %d", ErrOrphanedNode, forest, row.ID, *row.ParentID)
					}
					log.Warn("skipping legacy row with unmigrated parent",
						"id", row.ID, "parent_id", *row.ParentID)
					res.Orphans++
					continue
				}
				if _, err := ins.AddChild(ctx, parent, n); err != nil {
					return fmt.Errorf("migrating %s row %d: %w", forest, row.ID, err)
				}
			}

			converted[row.ID] = n
			res.Migrated++
			if n.Depth > res.MaxDepth {
				res.MaxDepth = n.Depth
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap, err := tree.SnapshotFromDB(ctx, m.d, scope, m.codec)
	if err != nil {
		return nil, fmt.Errorf("reloading %s: %w", scope, err)
	}
	res.Fingerprint = tree.Fingerprint(snap)

	res.Duration = time.Since(start)
	metrics.MigrationNodes.WithLabelValues(string(forest), "migrated").Add(float64(res.Migrated))
	metrics.MigrationNodes.WithLabelValues(string(forest), "orphan").Add(float64(res.Orphans))
	metrics.MigrationDuration.WithLabelValues(string(forest)).Observe(res.Duration.Seconds())
	log.Info("forest migrated",
		"migrated", res.Migrated, "orphans", res.Orphans, "roots", res.Roots, "max_depth", res.MaxDepth)
	return res, nil
}

func (m *Migrator) readForest(ctx context.Context, forest Forest) ([]Row, error) {
	switch forest {
	case ForestPages:
		return m.reader.Pages(ctx)
	case ForestPlugins:
		return m.reader.Plugins(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownForest, forest)
	}
}
