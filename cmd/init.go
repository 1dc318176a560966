package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cmstree/internal/ctxlog"
	"cmstree/internal/db"
	"cmstree/internal/legacy"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the tree schema and the legacy import tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := initTarget()

		d, err := db.OpenDB(path)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.ApplySchema(ctx); err != nil {
			return err
		}
		if err := legacy.NewReader(d.Conn()).CreateTables(ctx); err != nil {
			return err
		}

		ctxlog.FromContext(ctx).Debug("schema applied", "db", path)
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// initTarget picks where init creates the database. Unlike DiscoverDB it
// accepts paths that do not exist yet.
func initTarget() string {
	if envPath := os.Getenv("CMSTREE_DB"); envPath != "" {
		return envPath
	}
	if dbPath != "" {
		return dbPath
	}
	if found, err := DiscoverDB(); err == nil {
		return found
	}
	return DBFileName
}
