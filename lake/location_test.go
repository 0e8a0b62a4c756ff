package lake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocationProviderPaths(t *testing.T) {
	p := NewLocationProvider("/lake/1")

	require.Equal(t, "/lake/1/tbl_000000000000002A_7", p.MetadataPath(42, 7))
	require.Equal(t, "/lake/1/txn_000000000000002A_9", p.TxnLogPath(42, 9))
	require.Equal(t, "/lake/1/segment_abc", p.SegmentPath("segment_abc"))

	require.Equal(t, "tbl_000000000000002A_", p.MetadataPrefix(42, true))
	require.Equal(t, "tbl_", p.MetadataPrefix(42, false))
	require.Equal(t, "txn_000000000000002A_", p.TxnLogPrefix(42, true))
	require.Equal(t, "txn_", p.TxnLogPrefix(42, false))
}

func TestSchemaCacheKeyFormat(t *testing.T) {
	require.Equal(t, "schema_000000000000002A", schemaCacheKey(42))
}
