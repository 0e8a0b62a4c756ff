// Package connector defines the DataSource/DataSourceProvider contract
// consumed by the scan engine. The concrete plugins (HDFS,
// Hive, Iceberg readers) are out of scope; this package only carries the
// interfaces plus a small in-memory implementation used by scan engine
// tests.
package connector

import (
	"context"

	"github.com/lakedb/lakedb/chunk"
)

// ScanRange is an opaque descriptor consumed by a DataSourceProvider. Its
// contents are meaningful only to the specific connector that produced it.
type ScanRange struct {
	Raw []byte
}

// Predicate is a placeholder for a pushdown predicate. The expression
// evaluator that would populate these is out of scope.
type Predicate struct {
	Column string
	Expr   string
}

// RuntimeFilterCollector is a placeholder for the runtime-filter
// collector injected by the enclosing pipeline; out of scope here.
type RuntimeFilterCollector struct {
	Filters []string
}

// DataSource reads one scan range's worth of columnar data.
type DataSource interface {
	Open(ctx context.Context) error
	// GetNext fills chunk with the next batch of rows. It returns
	// base.ErrEndOfFile once exhausted.
	GetNext(ctx context.Context, c *chunk.Chunk) error
	Close(ctx context.Context)

	RawRowsRead() int64
	NumRowsRead() int64

	SetPredicates(p []Predicate)
	SetRuntimeFilters(c *RuntimeFilterCollector)
	SetReadLimit(limit int64)
}

// DataSourceProvider creates one DataSource per scan range and advertises
// two design hints to the enclosing pipeline.
type DataSourceProvider interface {
	Prepare(ctx context.Context) error
	Open(ctx context.Context) error
	Close(ctx context.Context)

	CreateDataSource(r ScanRange) DataSource
	AcceptEmptyScanRanges() bool
	InsertLocalExchangeOperator() bool
}
