package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cmstree/internal/db"
	"cmstree/internal/tree"
)

var (
	statsScope string
	statsTopN  int
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show depth and fan-out of a scope and how close it is to path overflow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		snap, err := tree.SnapshotFromDB(ctx, d, statsScope, codec)
		if err != nil {
			return fmt.Errorf("loading %s: %w", statsScope, err)
		}
		report := tree.ComputeStats(snap, statsTopN)

		w := cmd.OutOrStdout()
		if statsJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printStats(w, report)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsScope, "scope", db.ScopePages, "Tree scope (pages or plugins)")
	statsCmd.Flags().IntVar(&statsTopN, "top-n", 10, "Number of crowded parents to show")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func printStats(w io.Writer, r *tree.StatsReport) {
	fmt.Fprintf(w, "\n  %s\n", strings.ToUpper(r.Scope))
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Nodes: %s  Roots: %s  Leaves: %s\n",
		humanize.Comma(int64(r.TotalNodes)), humanize.Comma(int64(r.Roots)), humanize.Comma(int64(r.Leaves)))
	fmt.Fprintf(w, "  Max depth: %d (%d more levels fit)\n", r.MaxDepth, r.DepthHeadroom)
	fmt.Fprintf(w, "  Root slots left: %s\n", humanize.Comma(r.RootHeadroom))
	fmt.Fprintf(w, "  Fingerprint: %s\n", r.Fingerprint[:16])

	if len(r.DepthHistogram) > 0 {
		fmt.Fprintln(w, "\n  Nodes per depth:")
		for _, l := range r.DepthHistogram {
			fmt.Fprintf(w, "    %5d: %6s  %s\n", l.Depth, humanize.Comma(int64(l.Count)), logBar(l.Count))
		}
	}

	fmt.Fprintln(w, "\n  Children per node:")
	for _, b := range r.FanoutHistogram {
		if b.Count > 0 {
			fmt.Fprintf(w, "    %5s: %6s  %s\n", b.Label, humanize.Comma(int64(b.Count)), logBar(b.Count))
		}
	}

	if len(r.Crowded) > 0 {
		fmt.Fprintln(w, "\n  Least sibling headroom:")
		for _, c := range r.Crowded {
			fmt.Fprintf(w, "    %s %s children=%d next_step=%d headroom=%s  %s\n",
				truncID(c.ID), c.Path, c.Children, c.LastStep+1, humanize.Comma(c.Headroom), truncLabel(c.Label, 40))
		}
	}
	fmt.Fprintln(w)
}

func logBar(count int) string {
	width := int(math.Log2(float64(count))) + 2
	if width < 1 {
		width = 1
	}
	return strings.Repeat("=", width)
}
