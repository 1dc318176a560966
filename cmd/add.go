package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cmstree/internal/db"
	"cmstree/internal/tree"
)

var (
	addScope     string
	addRootKind  string
	addChildKind string
	addJSON      bool
)

var addRootCmd = &cobra.Command{
	Use:   "add-root <label>",
	Short: "Append a root after the last root of a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		n := &db.Node{Label: args[0], Kind: addRootKind}
		var tr tree.Transition
		err = d.InTx(ctx, func(tx *db.DB) error {
			tr, err = tree.NewInserter(tx, codec).AddRoot(ctx, addScope, n)
			return err
		})
		if err != nil {
			return fmt.Errorf("adding root: %w", err)
		}
		return printAdded(cmd.OutOrStdout(), n, tr)
	},
}

var addChildCmd = &cobra.Command{
	Use:   "add-child <parent> <label>",
	Short: "Append a child as the last child of parent (id, id prefix or scope:path)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		parent, err := ResolveNode(ctx, d, args[0])
		if err != nil {
			return err
		}

		n := &db.Node{Label: args[1], Kind: addChildKind}
		if n.Kind == "" {
			n.Kind = parent.Kind
		}
		var tr tree.Transition
		err = d.InTx(ctx, func(tx *db.DB) error {
			tr, err = tree.NewInserter(tx, codec).AddChild(ctx, parent, n)
			return err
		})
		if err != nil {
			return fmt.Errorf("adding child of %s:%s: %w", parent.Scope, parent.Path, err)
		}
		return printAdded(cmd.OutOrStdout(), n, tr)
	},
}

func init() {
	addRootCmd.Flags().StringVar(&addScope, "scope", db.ScopePages, "Tree scope (pages or plugins)")
	addRootCmd.Flags().StringVar(&addRootKind, "kind", "page", "Node kind")
	addRootCmd.Flags().BoolVar(&addJSON, "json", false, "Output as JSON")
	addChildCmd.Flags().StringVar(&addChildKind, "kind", "", "Node kind (defaults to the parent's)")
	addChildCmd.Flags().BoolVar(&addJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(addRootCmd, addChildCmd)
}

func printAdded(w io.Writer, n *db.Node, tr tree.Transition) error {
	if addJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*db.Node
			Transition string `json:"transition"`
		}{n, tr.String()})
	}
	fmt.Fprintf(w, "%s:%s  %s  %s (%s)\n", n.Scope, n.Path, truncID(n.ID), n.Label, tr)
	return nil
}
