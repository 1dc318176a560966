package tree

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cmstree/internal/mpath"
)

// ProblemKind classifies one inconsistency found by Check
type ProblemKind string

const (
	ProblemMalformedPath    ProblemKind = "malformed_path"
	ProblemBadSymbol        ProblemKind = "bad_symbol"
	ProblemPathOverflow     ProblemKind = "path_overflow"
	ProblemDepthMismatch    ProblemKind = "depth_mismatch"
	ProblemOrphan           ProblemKind = "orphan"
	ProblemNumChildMismatch ProblemKind = "numchild_mismatch"
)

// Fixable reports whether Fix can repair the problem without touching paths.
func (k ProblemKind) Fixable() bool {
	return k == ProblemDepthMismatch || k == ProblemNumChildMismatch
}

// Problem is one inconsistency on one node
type Problem struct {
	Kind   ProblemKind `json:"kind"`
	ID     string      `json:"id"`
	Path   string      `json:"path"`
	Stored int         `json:"stored,omitempty"`
	Want   int         `json:"want,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Paths   float64 `json:"paths"`
	Orphans float64 `json:"orphans"`
	Depth   float64 `json:"depth"`
	Counts  float64 `json:"counts"`
}

// Report is the full check result for one scope
type Report struct {
	Scope           string              `json:"scope"`
	TotalNodes      int                 `json:"total_nodes"`
	Roots           int                 `json:"roots"`
	MaxDepth        int                 `json:"max_depth"`
	HealthScore     float64             `json:"health_score"`
	HealthBreakdown HealthBreakdown     `json:"health_breakdown"`
	Counts          map[ProblemKind]int `json:"counts"`
	Problems        []Problem           `json:"problems"`
}

// OK reports whether the check found nothing wrong
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// Check audits a snapshot: every path well formed, depth equal to segment
// count, every non-root's parent present, numchild equal to the number of
// children derived from paths.
func Check(snap *Snapshot, codec *mpath.Codec) *Report {
	report := &Report{
		Scope:      snap.Scope,
		TotalNodes: len(snap.Nodes),
		Counts:     make(map[ProblemKind]int),
	}
	add := func(p Problem) {
		report.Problems = append(report.Problems, p)
		report.Counts[p.Kind]++
	}

	for _, n := range snap.Nodes {
		if err := codec.ValidatePath(n.Path); err != nil {
			add(Problem{Kind: pathProblemKind(err), ID: n.ID, Path: n.Path, Detail: err.Error()})
			continue
		}

		depth := codec.Depth(n.Path)
		if depth == 1 {
			report.Roots++
		}
		if depth > report.MaxDepth {
			report.MaxDepth = depth
		}
		if n.Depth != depth {
			add(Problem{Kind: ProblemDepthMismatch, ID: n.ID, Path: n.Path, Stored: n.Depth, Want: depth})
		}
		if parent := codec.ParentPath(n.Path); parent != "" {
			if !snap.HasPath(parent) {
				add(Problem{Kind: ProblemOrphan, ID: n.ID, Path: n.Path, Detail: fmt.Sprintf("missing parent %s", parent)})
			}
		}
		if want := len(snap.Children[n.Path]); n.NumChild != want {
			add(Problem{Kind: ProblemNumChildMismatch, ID: n.ID, Path: n.Path, Stored: n.NumChild, Want: want})
		}
	}

	total := float64(report.TotalNodes)
	var paths, orphans, depth, counts float64 = 1, 1, 1, 1
	if total > 0 {
		bad := report.Counts[ProblemMalformedPath] + report.Counts[ProblemBadSymbol] + report.Counts[ProblemPathOverflow]
		paths = clamp(1.0-math.Min(float64(bad)/total, 0.1)*10.0, 0, 1)
		orphans = clamp(1.0-math.Min(float64(report.Counts[ProblemOrphan])/total, 0.1)*10.0, 0, 1)
		depth = clamp(1.0-math.Min(float64(report.Counts[ProblemDepthMismatch])/total, 0.2)*5.0, 0, 1)
		counts = clamp(1.0-math.Min(float64(report.Counts[ProblemNumChildMismatch])/total, 0.2)*5.0, 0, 1)
	}
	report.HealthBreakdown = HealthBreakdown{Paths: paths, Orphans: orphans, Depth: depth, Counts: counts}
	report.HealthScore = 0.35*paths + 0.25*orphans + 0.20*depth + 0.20*counts

	return report
}

func pathProblemKind(err error) ProblemKind {
	switch {
	case errors.Is(err, mpath.ErrInvalidSymbol):
		return ProblemBadSymbol
	case errors.Is(err, mpath.ErrPathOverflow):
		return ProblemPathOverflow
	default:
		return ProblemMalformedPath
	}
}

// Fixer is the persistence Fix writes through. *db.DB satisfies it.
type Fixer interface {
	SetNumChild(ctx context.Context, scope, path string, numChild int) error
	SetDepth(ctx context.Context, scope, path string, depth int) error
}

// Fix rewrites the depth and numchild columns flagged by report from the
// values derived from paths. Paths themselves are never rewritten, so path,
// symbol and orphan problems are left for a human. Returns the number of
// rows repaired.
func Fix(ctx context.Context, store Fixer, report *Report) (int, error) {
	fixed := 0
	for _, p := range report.Problems {
		var err error
		switch p.Kind {
		case ProblemDepthMismatch:
			err = store.SetDepth(ctx, report.Scope, p.Path, p.Want)
		case ProblemNumChildMismatch:
			err = store.SetNumChild(ctx, report.Scope, p.Path, p.Want)
		default:
			continue
		}
		if err != nil {
			return fixed, fmt.Errorf("fixing %s on %s:%s: %w", p.Kind, report.Scope, p.Path, err)
		}
		fixed++
	}
	return fixed, nil
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
