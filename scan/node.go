// Package scan implements the Connector Scan Engine: a
// concurrency-controlled pipeline that reads columnar data from pluggable
// DataSources under bounded resource usage.
package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lakedb/lakedb/chunk"
	"github.com/lakedb/lakedb/config"
	"github.com/lakedb/lakedb/connector"
	"github.com/lakedb/lakedb/internal/base"
	"github.com/lakedb/lakedb/threadpool"
)

// Node is the per-query scan operator owning a set of scan ranges,
// driving startup, the pending/running scheduling loop, and teardown.
type Node struct {
	cfg      *config.Config
	provider connector.DataSourceProvider
	pool     *threadpool.Pool
	logger   base.Logger
	limit    int64 // -1 means unlimited

	scanRanges []connector.ScanRange

	mtx             sync.Mutex
	pendingScanners []*scanner
	chunkPool       *chunk.Pool

	numScanners      int
	chunksPerScanner int
	concurrency      int

	resultQueue    *chunk.Queue
	runningThreads atomic.Int32
	closedScanners atomic.Int32
	submitCount    atomic.Int32
	pendingToken   atomic.Bool

	// openCount tracks concurrently open DataSources for this node. A
	// single process-wide open-file limit would let independent nodes in
	// one process throttle each other; scoping the counter per Node
	// avoids that (see DESIGN.md's decided Open Question).
	openCount atomic.Int32

	statusMtx sync.Mutex
	status    error

	numRowsReturned int64
	started         bool
	closed          bool
}

// NewNode constructs a scan node. limit is the row limit the consumer
// wants (-1 for unlimited).
func NewNode(cfg *config.Config, provider connector.DataSourceProvider, pool *threadpool.Pool, limit int64) *Node {
	n := &Node{
		cfg:      cfg,
		provider: provider,
		pool:     pool,
		logger:   base.DefaultLogger{},
		limit:    limit,
	}
	// The node-level token starts held so the first scanner's CAS can
	// succeed; every scanner's own token field starts false.
	n.pendingToken.Store(true)
	return n
}

// SetLogger overrides the default logger (tests use base.NoopLogger to
// keep output quiet).
func (n *Node) SetLogger(l base.Logger) { n.logger = l }

// Prepare resolves the provider and initializes counters; no I/O.
func (n *Node) Prepare(ctx context.Context) error {
	n.resultQueue = chunk.NewQueue(n.cfg.ThreadPoolQueueDepth)
	return n.provider.Prepare(ctx)
}

// Open delegates to the provider.
func (n *Node) Open(ctx context.Context) error {
	return n.provider.Open(ctx)
}

// SetScanRanges installs the ranges this node will scan. If the provider
// refuses empty scan ranges and none were supplied, a single placeholder
// is injected to force creation of at least one DataSource.
func (n *Node) SetScanRanges(ranges []connector.ScanRange) {
	n.scanRanges = ranges
	if !n.provider.AcceptEmptyScanRanges() && len(ranges) == 0 {
		n.scanRanges = append(n.scanRanges, connector.ScanRange{})
	}
}

// GetNext pulls the next chunk. On the very first call it triggers
// start_scan.
func (n *Node) GetNext(ctx context.Context) (*chunk.Chunk, bool, error) {
	if !n.started {
		if n.getStatus() == nil {
			err := n.startScan(ctx)
			n.updateStatus(err)
			n.started = true
			if err != nil {
				return nil, true, err
			}
		} else {
			n.resultQueue.Shutdown()
			n.started = true
		}
	}

	if status := n.getStatus(); status != nil {
		if base.IsEndOfFile(status) {
			return nil, true, nil
		}
		return nil, true, status
	}

	n.maybeAdmitPending(ctx)

	c, ok := n.resultQueue.BlockingGet()
	if ok {
		n.mtx.Lock()
		n.chunkPool.Fill(1)
		n.mtx.Unlock()

		n.numRowsReturned += int64(c.NumRows())
		if n.limit != -1 && n.numRowsReturned >= n.limit {
			over := n.numRowsReturned - n.limit
			c.SetNumRows(c.NumRows() - int(over))
			n.updateStatus(base.ErrEndOfFile)
			n.resultQueue.Shutdown()
		}
		return c, false, nil
	}

	n.updateStatus(base.ErrEndOfFile)
	status := n.getStatus()
	if base.IsEndOfFile(status) {
		return nil, true, nil
	}
	return nil, true, status
}

// maybeAdmitPending is the consumer-loop scheduling opportunity: if
// there is slack in both the concurrency budget and the chunk pool,
// promote one pending scanner to running.
func (n *Node) maybeAdmitPending(ctx context.Context) {
	n.mtx.Lock()
	numClosed := n.closedScanners.Load()
	numPending := int32(len(n.pendingScanners))
	numRunning := int32(n.numScanners) - numPending - numClosed
	var toSubmit *scanner
	if numPending > 0 && numRunning < int32(n.cfg.MaxScannerConcurrency) {
		if int32(n.chunkPool.Len()) >= (numRunning+1)*int32(n.chunksPerScanner) {
			toSubmit = n.popPendingScannerLocked()
		}
	}
	n.mtx.Unlock()

	if toSubmit != nil {
		n.submitScanner(ctx, toSubmit, true)
	}
}

// startScan creates one DataSource per scan range, then admits the
// initial batch of scanners up to the concurrency budget.
func (n *Node) startScan(ctx context.Context) error {
	for _, r := range n.scanRanges {
		ds := n.provider.CreateDataSource(r)
		s := newScanner(ds)
		n.pendingScanners = append(n.pendingScanners, s)
	}

	n.numScanners = len(n.pendingScanners)
	n.chunksPerScanner = n.cfg.ChunksPerScanner()
	n.concurrency = n.cfg.MaxScannerConcurrency
	if n.numScanners < n.concurrency {
		n.concurrency = n.numScanners
	}

	n.chunkPool = chunk.NewPool(n.chunksPerScanner * n.concurrency)
	n.chunkPool.Fill(n.chunksPerScanner * n.concurrency)

	for i := 0; i < n.concurrency; i++ {
		n.mtx.Lock()
		s := n.popPendingScannerLocked()
		n.mtx.Unlock()
		n.submitScanner(ctx, s, true)
	}
	return nil
}

// submitScanner computes priority from the aging table, bumps
// running_threads before offering, and falls back from a non-blocking
// to a blocking offer when allowed.
func (n *Node) submitScanner(ctx context.Context, s *scanner, blockable bool) bool {
	delta := int32(1)
	if s.keepPriority {
		delta = 0
	}
	prev := n.submitCount.Add(delta) - delta
	priority := computePriority(prev)

	n.runningThreads.Add(1)

	task := threadpool.Task{
		Priority: priority,
		Work:     func() { n.scannerThread(ctx, s) },
	}
	if n.pool.TryOffer(task) {
		return true
	}
	if blockable {
		n.pool.Offer(task)
		return true
	}

	n.logger.Warningf("thread pool busy")
	n.runningThreads.Add(-1)
	n.submitCount.Add(-delta)
	return false
}

// scannerThread is the per-task work function submitted to the pool.
func (n *Node) scannerThread(ctx context.Context, s *scanner) {
	defer func() {
		n.runningThreads.Add(-1)
		if n.closedScanners.Load() == int32(n.numScanners) {
			n.resultQueue.Shutdown()
		}
	}()

	if n.getStatus() != nil {
		n.releaseScanner(ctx, s)
		return
	}

	concurrencyLimit := n.cfg.MaxOpenFileHandles

	// Pending-token yield protocol: a scanner that
	// holds the token opportunistically wakes peers once the open-file
	// budget has room.
	if s.hasPendingToken() {
		concurrency := n.cfg.MaxScannerConcurrency
		if n.numScanners < concurrency {
			concurrency = n.numScanners
		}
		needPut := concurrency - int(n.runningThreads.Load())
		leftResource := int(concurrencyLimit) - int(n.openCount.Load())
		if leftResource > 0 {
			if needPut > leftResource {
				needPut = leftResource
			}
			n.mtx.Lock()
			for needPut > 0 && len(n.pendingScanners) > 0 {
				next := n.popPendingScannerLocked()
				n.mtx.Unlock()
				ok := n.submitScanner(ctx, next, false)
				n.mtx.Lock()
				needPut--
				if !ok {
					break
				}
			}
			n.mtx.Unlock()
		}
	}

	if !s.hasPendingToken() {
		s.acquirePendingToken(&n.pendingToken)
	}

	// Admission check: the token holder always gets
	// through so progress is guaranteed.
	if !s.isOpen && n.openCount.Load() > concurrencyLimit {
		if !s.hasPendingToken() {
			n.mtx.Lock()
			n.pushPendingScannerLocked(s)
			n.mtx.Unlock()
			return
		}
	}

	wasOpen := s.isOpen
	openErr := s.open(ctx)
	if openErr == nil && !wasOpen {
		n.openCount.Add(1)
	}
	s.keepPriority = false

	resubmit := false
	rawRowsThreshold := s.dataSource.RawRowsRead() + n.cfg.ScannerRowNum

	loopErr := openErr
	scannerAlive := true
	for loopErr == nil {
		if n.getStatus() != nil {
			break
		}

		var c *chunk.Chunk
		n.mtx.Lock()
		if n.chunkPool.Empty() {
			s.keepPriority = true
			s.releasePendingToken(&n.pendingToken)
			n.pushPendingScannerLocked(s)
			n.mtx.Unlock()
			scannerAlive = false
			break
		}
		c = n.chunkPool.Pop()
		n.mtx.Unlock()

		getErr := s.dataSource.GetNext(ctx, c)
		if getErr != nil {
			n.mtx.Lock()
			n.chunkPool.Push(c)
			n.mtx.Unlock()
			if base.IsEndOfFile(getErr) {
				loopErr = base.ErrEndOfFile
			} else {
				loopErr = getErr
			}
			break
		}

		if !n.resultQueue.Put(c) {
			loopErr = base.ErrAborted
			break
		}
		if n.limit != -1 && s.dataSource.NumRowsRead() >= n.limit {
			loopErr = base.ErrEndOfFile
			break
		}
		if s.dataSource.RawRowsRead() >= rawRowsThreshold {
			resubmit = true
			break
		}
	}

	globalErr := n.getStatus()
	if globalErr != nil {
		if scannerAlive {
			n.releaseScanner(ctx, s)
		}
		return
	}

	switch {
	case loopErr == nil && resubmit:
		if !n.submitScanner(ctx, s, false) {
			n.mtx.Lock()
			s.releasePendingToken(&n.pendingToken)
			n.pushPendingScannerLocked(s)
			n.mtx.Unlock()
		}
	case loopErr == nil:
		// Ownership already handed to the pending queue by the
		// pool-empty branch above; nothing further to do here.
	case base.IsEndOfFile(loopErr):
		s.releasePendingToken(&n.pendingToken)
		n.closeScannerCounted(ctx, s)
		n.closedScanners.Add(1)

		n.mtx.Lock()
		var next *scanner
		if len(n.pendingScanners) > 0 {
			next = n.popPendingScannerLocked()
		}
		n.mtx.Unlock()
		if next != nil {
			if !n.submitScanner(ctx, next, false) {
				n.mtx.Lock()
				n.pushPendingScannerLocked(next)
				n.mtx.Unlock()
			}
		}
	default:
		n.updateStatus(loopErr)
		n.releaseScanner(ctx, s)
	}
}

func (n *Node) releaseScanner(ctx context.Context, s *scanner) {
	s.releasePendingToken(&n.pendingToken)
	n.closeScannerCounted(ctx, s)
	n.closedScanners.Add(1)
	n.closePendingScanners(ctx)
}

func (n *Node) closeScannerCounted(ctx context.Context, s *scanner) {
	wasOpen := s.isOpen
	s.close(ctx)
	if wasOpen {
		n.openCount.Add(-1)
	}
}

func (n *Node) closePendingScanners(ctx context.Context) {
	for {
		n.mtx.Lock()
		if len(n.pendingScanners) == 0 {
			n.mtx.Unlock()
			return
		}
		s := n.popPendingScannerLocked()
		n.mtx.Unlock()

		n.closeScannerCounted(ctx, s)
		n.closedScanners.Add(1)
	}
}

// popPendingScannerLocked and pushPendingScannerLocked require n.mtx to
// be held. The queue is FIFO (append at the back, pop from the front) so
// scan ranges are serviced in the order they were supplied.
func (n *Node) popPendingScannerLocked() *scanner {
	s := n.pendingScanners[0]
	n.pendingScanners = n.pendingScanners[1:]
	return s
}

func (n *Node) pushPendingScannerLocked(s *scanner) {
	n.pendingScanners = append(n.pendingScanners, s)
}

// Close cancels the node, drains all workers, and releases resources.
// It busy-waits on the running-thread count rather than switching to a
// condvar, to preserve the documented shutdown behavior (see the Redesign
// Flag note in SPEC_FULL.md §5).
func (n *Node) Close(ctx context.Context) error {
	if n.closed {
		return nil
	}
	n.closed = true
	n.updateStatus(base.ErrCancelled)
	if n.resultQueue != nil {
		n.resultQueue.Shutdown()
	}
	for n.runningThreads.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	n.closePendingScanners(ctx)
	n.provider.Close(ctx)
	return nil
}

func (n *Node) updateStatus(err error) {
	n.statusMtx.Lock()
	defer n.statusMtx.Unlock()
	if n.status == nil {
		n.status = err
	}
}

func (n *Node) getStatus() error {
	n.statusMtx.Lock()
	defer n.statusMtx.Unlock()
	return n.status
}

// NumClosedScanners exposes the closed-scanner count for tests
// validating end-of-scan teardown.
func (n *Node) NumClosedScanners() int32 { return n.closedScanners.Load() }

// NumScanners exposes the invariant-checked total for property tests.
func (n *Node) NumScanners() int { return n.numScanners }
