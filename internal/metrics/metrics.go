// Package metrics exposes Prometheus counters for tree writes and migrations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NodesInserted counts successful insertions by scope and transition
	NodesInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmstree_nodes_inserted_total",
		Help: "Nodes inserted into a tree scope, by insertion transition",
	}, []string{"scope", "transition"})

	// PathOverflows counts insertions rejected because the path did not fit
	PathOverflows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmstree_path_overflows_total",
		Help: "Insertions aborted by a segment or column overflow",
	}, []string{"scope"})

	// MigrationNodes counts legacy rows processed by forest and outcome
	MigrationNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmstree_migration_nodes_total",
		Help: "Legacy rows processed by the tree migrator",
	}, []string{"forest", "result"}) // result: "migrated" or "orphan"

	// MigrationDuration tracks how long each forest took to convert
	MigrationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cmstree_migration_duration_seconds",
		Help:    "Wall time of one forest migration pass",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	}, []string{"forest"})
)

// WriteTextfile dumps every registered metric to path in the text exposition
// format, for pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
