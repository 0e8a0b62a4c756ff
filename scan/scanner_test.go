package scan

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lakedb/lakedb/config"
	"github.com/lakedb/lakedb/connector"
	"github.com/lakedb/lakedb/internal/base"
	"github.com/lakedb/lakedb/threadpool"
)

// TestPendingTokenSingleHolder exercises the CAS handoff directly: the
// node-level token starts held (as NewNode seeds it), exactly one
// scanner may acquire it at a time, and releasing it makes it available
// to the next acquirer.
func TestPendingTokenSingleHolder(t *testing.T) {
	var nodeToken atomic.Bool
	nodeToken.Store(true)

	s1 := newScanner(&connector.MemTableSource{})
	s2 := newScanner(&connector.MemTableSource{})

	require.False(t, s1.hasPendingToken())
	require.True(t, s1.acquirePendingToken(&nodeToken))
	require.True(t, s1.hasPendingToken())

	// The node-level slot is now empty, so a second scanner can't acquire.
	require.False(t, s2.acquirePendingToken(&nodeToken))
	require.False(t, s2.hasPendingToken())

	require.True(t, s1.releasePendingToken(&nodeToken))
	require.False(t, s1.hasPendingToken())

	require.True(t, s2.acquirePendingToken(&nodeToken))
	require.True(t, s2.hasPendingToken())
}

// TestPendingTokenReleaseRequiresHold asserts releasePendingToken is a
// no-op (returns false, leaves the node token untouched) when the
// scanner doesn't currently hold it.
func TestPendingTokenReleaseRequiresHold(t *testing.T) {
	var nodeToken atomic.Bool
	nodeToken.Store(true)

	s := newScanner(&connector.MemTableSource{})
	require.False(t, s.releasePendingToken(&nodeToken))
	require.True(t, nodeToken.Load())
}

// TestPendingTokenWokenUnderThrottle drives a real Node, whose node-level
// token NewNode seeds true, with a file handle budget tighter than the
// scanner count. Scanners that find the budget exhausted and do not hold
// the pending token go back to the pending queue; they are resubmitted as
// peers reach end-of-file or by the consumer loop, and the token holder is
// always admitted. Every scanner must still reach end-of-file.
func TestPendingTokenWokenUnderThrottle(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 4
	cfg.ScannerRowNum = 8
	cfg.MaxScannerConcurrency = 4
	cfg.MaxOpenFileHandles = 1
	cfg.ThreadPoolSize = 2
	cfg.ThreadPoolQueueDepth = 64

	const numScanners = 4
	const rowsPerScanner = 16

	provider := &connector.MemTableProvider{TotalRows: rowsPerScanner, ChunkSize: cfg.ChunkSize}
	pool := threadpool.New(cfg.ThreadPoolSize, cfg.ThreadPoolQueueDepth)
	defer pool.Close()

	n := NewNode(cfg, provider, pool, -1)
	n.SetLogger(base.NoopLogger{})
	ctx := context.Background()

	require.True(t, n.pendingToken.Load())

	require.NoError(t, n.Prepare(ctx))
	require.NoError(t, n.Open(ctx))
	n.SetScanRanges(make([]connector.ScanRange, numScanners))

	done := make(chan int64, 1)
	go func() { done <- drainNode(t, n, ctx) }()

	select {
	case total := <-done:
		require.Equal(t, int64(numScanners*rowsPerScanner), total)
	case <-time.After(30 * time.Second):
		t.Fatal("scan did not complete: suspected deadlock in the pending-token yield protocol")
	}

	require.Equal(t, int32(numScanners), n.NumClosedScanners())
	require.NoError(t, n.Close(ctx))
}
