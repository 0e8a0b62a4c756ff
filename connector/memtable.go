package connector

import (
	"context"
	"sync/atomic"

	"github.com/lakedb/lakedb/chunk"
	"github.com/lakedb/lakedb/internal/base"
)

// MemTableProvider is a deterministic, in-memory DataSourceProvider used
// by the scan engine's tests in place of a real HDFS/Iceberg plugin. Each
// scan range gets its own MemTableSource producing totalRows rows in
// batches of chunkSize.
type MemTableProvider struct {
	TotalRows          int64
	ChunkSize          int64
	AcceptEmpty        bool
	InsertLocalExchange bool

	// OpenCount and CloseCount let tests assert on the file-handle
	// throttling scenario.
	OpenCount  atomic.Int32
	CloseCount atomic.Int32
}

func (p *MemTableProvider) Prepare(context.Context) error { return nil }
func (p *MemTableProvider) Open(context.Context) error    { return nil }
func (p *MemTableProvider) Close(context.Context)         {}

func (p *MemTableProvider) CreateDataSource(_ ScanRange) DataSource {
	return &MemTableSource{provider: p, chunkSize: p.ChunkSize, totalRows: p.TotalRows}
}

func (p *MemTableProvider) AcceptEmptyScanRanges() bool       { return p.AcceptEmpty }
func (p *MemTableProvider) InsertLocalExchangeOperator() bool { return p.InsertLocalExchange }

// MemTableSource is the DataSource half of MemTableProvider.
type MemTableSource struct {
	provider  *MemTableProvider
	chunkSize int64
	totalRows int64

	produced  int64
	rawRead   int64
	readLimit int64
	isOpen    bool
}

func (s *MemTableSource) Open(context.Context) error {
	s.isOpen = true
	if s.provider != nil {
		s.provider.OpenCount.Add(1)
	}
	return nil
}

func (s *MemTableSource) Close(context.Context) {
	if s.isOpen && s.provider != nil {
		s.provider.CloseCount.Add(1)
	}
	s.isOpen = false
}

func (s *MemTableSource) GetNext(_ context.Context, c *chunk.Chunk) error {
	if s.produced >= s.totalRows {
		return base.ErrEndOfFile
	}
	n := s.chunkSize
	if remaining := s.totalRows - s.produced; remaining < n {
		n = remaining
	}
	c.AppendRows(int(n))
	s.produced += n
	s.rawRead += n
	return nil
}

func (s *MemTableSource) RawRowsRead() int64 { return s.rawRead }
func (s *MemTableSource) NumRowsRead() int64 { return s.produced }

func (s *MemTableSource) SetPredicates([]Predicate)               {}
func (s *MemTableSource) SetRuntimeFilters(*RuntimeFilterCollector) {}
func (s *MemTableSource) SetReadLimit(limit int64)                { s.readLimit = limit }
