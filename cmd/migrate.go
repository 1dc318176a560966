package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cmstree/internal/config"
	"cmstree/internal/legacy"
	"cmstree/internal/metrics"
)

var (
	migrateForest      string
	migrateOrphans     string
	migrateMetricsFile string
	migrateJSON        bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert legacy nested-set page and plugin trees into materialized paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		policy := cfg.OrphanPolicy
		if migrateOrphans != "" {
			p, err := config.ParseOrphanPolicy(migrateOrphans)
			if err != nil {
				return err
			}
			policy = p
		}

		forests := legacy.Forests
		if migrateForest != "all" {
			f, err := legacy.ParseForest(migrateForest)
			if err != nil {
				return err
			}
			forests = []legacy.Forest{f}
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		m := legacy.NewMigrator(d, codec, policy)
		var results []*legacy.Result
		var runErr error
		for _, f := range forests {
			res, err := m.Migrate(ctx, f)
			if err != nil {
				runErr = fmt.Errorf("migrating %s: %w", f, err)
				break
			}
			results = append(results, res)
		}

		// Metrics are written even for a failed run so the failure is visible.
		if migrateMetricsFile != "" {
			if err := metrics.WriteTextfile(migrateMetricsFile); err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
		}
		if runErr != nil {
			return runErr
		}

		w := cmd.OutOrStdout()
		if migrateJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		for _, r := range results {
			fmt.Fprintf(w, "%-8s read=%s migrated=%s roots=%s orphans=%s max_depth=%d (%s)\n",
				r.Forest,
				humanize.Comma(int64(r.Read)),
				humanize.Comma(int64(r.Migrated)),
				humanize.Comma(int64(r.Roots)),
				humanize.Comma(int64(r.Orphans)),
				r.MaxDepth,
				r.Duration.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateForest, "forest", "all", "Forest to migrate: pages, plugins or all")
	migrateCmd.Flags().StringVar(&migrateOrphans, "orphans", "", "Orphan policy: warn or abort (overrides config)")
	migrateCmd.Flags().StringVar(&migrateMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	migrateCmd.Flags().BoolVar(&migrateJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(migrateCmd)
}
