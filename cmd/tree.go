package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cmstree/internal/db"
)

var (
	treeScope string
	treeUnder string
	treeJSON  bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print a scope, or the subtree under a node, in pre-order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		var nodes []db.Node
		base := 0
		if treeUnder != "" {
			root, err := ResolveNode(ctx, d, treeUnder)
			if err != nil {
				return err
			}
			desc, err := d.Descendants(ctx, root)
			if err != nil {
				return fmt.Errorf("loading subtree: %w", err)
			}
			nodes = append([]db.Node{*root}, desc...)
			base = codec.Depth(root.Path) - 1
		} else {
			nodes, err = d.ScopeNodes(ctx, treeScope)
			if err != nil {
				return fmt.Errorf("loading %s: %w", treeScope, err)
			}
		}

		w := cmd.OutOrStdout()
		if treeJSON {
			if nodes == nil {
				nodes = []db.Node{}
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		}

		if len(nodes) == 0 {
			fmt.Fprintf(w, "%s is empty\n", treeScope)
			return nil
		}

		roots := 0
		for _, n := range nodes {
			// Indent from the path; the stored depth column may be stale.
			level := codec.Depth(n.Path) - base
			if level == 1 {
				roots++
			}
			indent := strings.Repeat("  ", max(level-1, 0))
			fmt.Fprintf(w, "%s%s  %s [%s] %s\n", indent, n.Path, truncLabel(n.Label, 60), n.Kind, truncID(n.ID))
		}
		fmt.Fprintf(w, "\n%s nodes, %s roots\n", humanize.Comma(int64(len(nodes))), humanize.Comma(int64(roots)))
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeScope, "scope", db.ScopePages, "Tree scope (pages or plugins)")
	treeCmd.Flags().StringVar(&treeUnder, "under", "", "Only print the subtree under this node (id, id prefix or scope:path)")
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(treeCmd)
}
