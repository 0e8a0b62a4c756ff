package lake

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
)

// requireWireEqual asserts a round-tripped wire value matches the
// original, printing a field-by-field diff on failure rather than Go's
// usual nested %#v dump.
func requireWireEqual(t *testing.T, want, got interface{}) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\n%s", strings.Join(pretty.Diff(want, got), "\n"))
	}
}

func TestRowsetMetadataRoundTrip(t *testing.T) {
	r := &RowsetMetadata{ID: 7, Segments: []string{"s0", "s1", "s2"}, NumRows: 123}
	got := &RowsetMetadata{}
	require.NoError(t, got.Unmarshal(r.Marshal()))
	requireWireEqual(t, r, got)
}

func TestTabletSchemaRoundTripAndFingerprint(t *testing.T) {
	s := &TabletSchema{Columns: []ColumnSchema{
		{ID: 0, Name: "a", Type: "int"},
		{ID: 1, Name: "b", Type: "string"},
	}}
	got := &TabletSchema{}
	require.NoError(t, got.Unmarshal(s.Marshal()))
	requireWireEqual(t, s, got)

	other := &TabletSchema{Columns: []ColumnSchema{
		{ID: 0, Name: "a", Type: "int"},
		{ID: 1, Name: "b", Type: "string"},
	}}
	require.Equal(t, s.fingerprint(), other.fingerprint())

	reordered := &TabletSchema{Columns: []ColumnSchema{
		{ID: 1, Name: "b", Type: "string"},
		{ID: 0, Name: "a", Type: "int"},
	}}
	require.NotEqual(t, s.fingerprint(), reordered.fingerprint())
}

func TestTabletMetadataRoundTrip(t *testing.T) {
	md := &TabletMetadata{
		TabletID:     42,
		Version:      3,
		NextRowsetID: 9,
		Schema: &TabletSchema{Columns: []ColumnSchema{
			{ID: 0, Name: "a", Type: "int"},
		}},
		Rowsets: []*RowsetMetadata{
			{ID: 1, Segments: []string{"s0"}, NumRows: 10},
			{ID: 2, Segments: []string{"s1", "s2"}, NumRows: 20},
		},
	}
	got := &TabletMetadata{}
	require.NoError(t, got.Unmarshal(md.Marshal()))
	requireWireEqual(t, md, got)
}

func TestTabletMetadataCloneIsIndependent(t *testing.T) {
	md := &TabletMetadata{
		TabletID: 1, Version: 1, NextRowsetID: 2,
		Schema:  &TabletSchema{Columns: []ColumnSchema{{ID: 0, Name: "a", Type: "int"}}},
		Rowsets: []*RowsetMetadata{{ID: 1, Segments: []string{"s0"}, NumRows: 5}},
	}
	clone := md.Clone()
	clone.Version = 2
	clone.Rowsets[0].Segments[0] = "mutated"
	clone.Schema.Columns[0].Name = "mutated"

	require.Equal(t, int64(1), md.Version)
	require.Equal(t, "s0", md.Rowsets[0].Segments[0])
	require.Equal(t, "a", md.Schema.Columns[0].Name)
}

func TestTxnLogRoundTripOpWrite(t *testing.T) {
	log := &TxnLog{
		TabletID: 5, TxnID: 99,
		OpWrite: &OpWrite{Rowset: &RowsetMetadata{NumRows: 3, Segments: []string{"s0"}}},
	}
	got := &TxnLog{}
	require.NoError(t, got.Unmarshal(log.Marshal()))
	requireWireEqual(t, log, got)
}

func TestTxnLogRoundTripOpCompaction(t *testing.T) {
	log := &TxnLog{
		TabletID: 5, TxnID: 100,
		OpCompaction: &OpCompaction{
			InputRowsets: []uint32{1, 2, 3},
			OutputRowset: &RowsetMetadata{NumRows: 30, Segments: []string{"s0", "s1"}},
		},
	}
	got := &TxnLog{}
	require.NoError(t, got.Unmarshal(log.Marshal()))
	requireWireEqual(t, log, got)
}

func TestTxnLogRoundTripOpSchemaChange(t *testing.T) {
	log := &TxnLog{TabletID: 5, TxnID: 101, OpSchemaChange: &OpSchemaChange{}}
	got := &TxnLog{}
	require.NoError(t, got.Unmarshal(log.Marshal()))
	requireWireEqual(t, log, got)
}

func TestSchemaMapDedup(t *testing.T) {
	m := NewSchemaMap()
	s1 := &TabletSchema{Columns: []ColumnSchema{{ID: 0, Name: "a", Type: "int"}}}
	s2 := &TabletSchema{Columns: []ColumnSchema{{ID: 0, Name: "a", Type: "int"}}}

	canonical1, inserted1 := m.Dedup(s1)
	require.True(t, inserted1)
	require.Same(t, s1, canonical1)

	canonical2, inserted2 := m.Dedup(s2)
	require.False(t, inserted2)
	require.Same(t, s1, canonical2)
}
