package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cmstree/internal/ctxlog"
	"cmstree/internal/db"
	"cmstree/internal/tree"
)

var (
	checkJSON  bool
	checkScope string
	checkUnder string
	checkFix   bool
	checkTopN  int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit stored trees: path shape, depth, orphans, child counts, health score",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		scopes := []string{checkScope}
		underPath := ""
		if checkUnder != "" {
			node, err := ResolveNode(ctx, d, checkUnder)
			if err != nil {
				return err
			}
			scopes = []string{node.Scope}
			underPath = node.Path
		} else if checkScope == "" {
			if scopes, err = d.Scopes(ctx); err != nil {
				return err
			}
		}

		var reports []*tree.Report
		remaining := 0
		for _, scope := range scopes {
			report, err := checkOne(ctx, d, scope, underPath)
			if err != nil {
				return err
			}
			if checkFix && !report.OK() {
				var fixed int
				err := d.InTx(ctx, func(tx *db.DB) error {
					var err error
					fixed, err = tree.Fix(ctx, tx, report)
					return err
				})
				if err != nil {
					return err
				}
				ctxlog.FromContext(ctx).Info("repaired rows", "scope", scope, "fixed", fixed)

				if report, err = checkOne(ctx, d, scope, underPath); err != nil {
					return err
				}
			}
			remaining += len(report.Problems)
			reports = append(reports, report)
		}

		w := cmd.OutOrStdout()
		if checkJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(reports); err != nil {
				return err
			}
		} else {
			for _, r := range reports {
				printReport(w, r)
			}
		}

		if remaining > 0 {
			return fmt.Errorf("%s problems found", humanize.Comma(int64(remaining)))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output as JSON")
	checkCmd.Flags().StringVar(&checkScope, "scope", "", "Only check this scope (default: every scope)")
	checkCmd.Flags().StringVar(&checkUnder, "under", "", "Only check the subtree under this node")
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "Rewrite depth and numchild columns from paths")
	checkCmd.Flags().IntVar(&checkTopN, "top-n", 10, "Number of problems to list per kind")
	rootCmd.AddCommand(checkCmd)
}

func checkOne(ctx context.Context, d *db.DB, scope, underPath string) (*tree.Report, error) {
	snap, err := tree.SnapshotFromDB(ctx, d, scope, codec)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", scope, err)
	}
	if underPath != "" {
		snap = snap.FilterToSubtree(underPath)
	}
	return tree.Check(snap, codec), nil
}

func printReport(w io.Writer, report *tree.Report) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Fprintf(w, "\n  %s health: %.0f%%  [%s]\n", report.Scope, report.HealthScore*100, bar)
	fmt.Fprintf(w, "  breakdown: paths=%.2f orphans=%.2f depth=%.2f counts=%.2f\n\n",
		report.HealthBreakdown.Paths,
		report.HealthBreakdown.Orphans,
		report.HealthBreakdown.Depth,
		report.HealthBreakdown.Counts)

	fmt.Fprintln(w, "  SHAPE")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Nodes: %s  Roots: %s  Max depth: %d\n",
		humanize.Comma(int64(report.TotalNodes)), humanize.Comma(int64(report.Roots)), report.MaxDepth)

	if report.OK() {
		fmt.Fprintln(w, "  No problems found")
		fmt.Fprintln(w)
		return
	}

	byKind := make(map[tree.ProblemKind][]tree.Problem)
	for _, p := range report.Problems {
		byKind[p.Kind] = append(byKind[p.Kind], p)
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fmt.Fprintln(w, "\n  PROBLEMS")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	for _, k := range kinds {
		problems := byKind[tree.ProblemKind(k)]
		fixable := ""
		if tree.ProblemKind(k).Fixable() {
			fixable = " (fixable with --fix)"
		}
		fmt.Fprintf(w, "  %s: %s%s\n", k, humanize.Comma(int64(len(problems))), fixable)

		limit := checkTopN
		if len(problems) < limit {
			limit = len(problems)
		}
		for _, p := range problems[:limit] {
			switch {
			case p.Detail != "":
				fmt.Fprintf(w, "    %s %s  %s\n", truncID(p.ID), p.Path, p.Detail)
			default:
				fmt.Fprintf(w, "    %s %s  stored=%d want=%d\n", truncID(p.ID), p.Path, p.Stored, p.Want)
			}
		}
		if len(problems) > limit {
			fmt.Fprintf(w, "    ... and %d more\n", len(problems)-limit)
		}
	}
	fmt.Fprintln(w)
}
