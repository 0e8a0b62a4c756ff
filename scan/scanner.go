package scan

import (
	"context"
	"sync/atomic"

	"github.com/lakedb/lakedb/connector"
)

// scanner wraps one DataSource, tracking its bookkeeping fields: open
// state, keep-priority, and the single pending token bit.
type scanner struct {
	dataSource connector.DataSource

	isOpen       bool
	keepPriority bool
	pendingToken atomic.Bool
}

func newScanner(ds connector.DataSource) *scanner {
	return &scanner{dataSource: ds}
}

func (s *scanner) open(ctx context.Context) error {
	if s.isOpen {
		return nil
	}
	if err := s.dataSource.Open(ctx); err != nil {
		return err
	}
	s.isOpen = true
	return nil
}

func (s *scanner) close(ctx context.Context) {
	if !s.isOpen {
		return
	}
	s.dataSource.Close(ctx)
	s.isOpen = false
}

// acquirePendingToken performs a CAS-swap: if the node-level token is
// currently held (true), it is atomically transferred to this scanner.
func (s *scanner) acquirePendingToken(nodeToken *atomic.Bool) bool {
	if nodeToken.CompareAndSwap(true, false) {
		s.pendingToken.Store(true)
		return true
	}
	return false
}

// releasePendingToken gives the token back to the node, iff this scanner
// currently holds it.
func (s *scanner) releasePendingToken(nodeToken *atomic.Bool) bool {
	if s.pendingToken.CompareAndSwap(true, false) {
		nodeToken.Store(true)
		return true
	}
	return false
}

func (s *scanner) hasPendingToken() bool { return s.pendingToken.Load() }
