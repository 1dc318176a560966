package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	before := testutil.ToFloat64(MigrationNodes.WithLabelValues("pages", "migrated"))
	MigrationNodes.WithLabelValues("pages", "migrated").Add(3)
	require.Equal(t, before+3, testutil.ToFloat64(MigrationNodes.WithLabelValues("pages", "migrated")))

	path := filepath.Join(t.TempDir(), "cmstree.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `cmstree_migration_nodes_total{forest="pages",result="migrated"}`)
}
