package lake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lakedb/lakedb/internal/base"
)

func TestCompactBuildsTaskFromMetadata(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	md := &TabletMetadata{
		TabletID: 3, Version: 1, NextRowsetID: 3,
		Schema: &TabletSchema{Columns: []ColumnSchema{{ID: 0, Name: "a", Type: "int"}}},
		Rowsets: []*RowsetMetadata{
			{ID: 1, Segments: []string{"s0"}, NumRows: 10},
			{ID: 2, Segments: []string{"s1"}, NumRows: 20},
		},
	}
	require.NoError(t, m.PutTabletMetadata(ctx, md))

	task, err := m.Compact(ctx, 3, 1, 55)
	require.NoError(t, err)
	require.Equal(t, int64(55), task.TxnID)
	require.Equal(t, int64(1), task.Version)
	require.Equal(t, uint64(3), task.Tablet.ID)
	require.Len(t, task.InputRowsets, 2)
	require.Equal(t, uint32(1), task.InputRowsets[0].Meta.ID)
	require.Equal(t, uint32(2), task.InputRowsets[1].Meta.ID)
}

func TestCompactPropagatesNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Compact(context.Background(), 99, 1, 1)
	require.Error(t, err)
	require.True(t, base.IsNotFound(err))
}
