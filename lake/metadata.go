// Package lake implements the Lake Tablet Manager: a transactional
// metadata engine managing versioned tablet metadata and write-ahead
// transaction logs over an object-store-backed filesystem.
package lake

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lakedb/lakedb/internal/base"
)

// RowsetMetadata describes one unit of data produced by a write or a
// compaction.
type RowsetMetadata struct {
	ID       uint32
	Segments []string
	NumRows  int64
}

// SegmentsSize mirrors segments_size() of the original: the amount by
// which next_rowset_id advances when this rowset is assigned an id.
func (r *RowsetMetadata) SegmentsSize() uint32 { return uint32(len(r.Segments)) }

func (r *RowsetMetadata) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.ID))
	for _, seg := range r.Segments {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte(seg))
	}
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.NumRows))
	return b
}

func (r *RowsetMetadata) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return base.Corruptionf("rowset metadata: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return base.Corruptionf("rowset metadata: bad id")
			}
			r.ID = uint32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return base.Corruptionf("rowset metadata: bad segment")
			}
			r.Segments = append(r.Segments, string(v))
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return base.Corruptionf("rowset metadata: bad num_rows")
			}
			r.NumRows = int64(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return base.Corruptionf("rowset metadata: bad field %d", num)
			}
			b = b[n:]
		}
	}
	return nil
}

// TabletMetadata is the versioned, immutable-once-written snapshot of a
// tablet's rowsets. It is serialized at
// tbl_<tabletId:016X>_<version>.
type TabletMetadata struct {
	TabletID     uint64
	Version      int64
	NextRowsetID uint32
	Schema       *TabletSchema
	Rowsets      []*RowsetMetadata
}

// Clone deep-copies the metadata, used by publish to mutate a new version
// without touching the base snapshot still referenced by other readers.
func (m *TabletMetadata) Clone() *TabletMetadata {
	clone := &TabletMetadata{
		TabletID:     m.TabletID,
		Version:      m.Version,
		NextRowsetID: m.NextRowsetID,
	}
	if m.Schema != nil {
		clone.Schema = &TabletSchema{Columns: append([]ColumnSchema(nil), m.Schema.Columns...)}
	}
	clone.Rowsets = make([]*RowsetMetadata, len(m.Rowsets))
	for i, r := range m.Rowsets {
		cp := *r
		cp.Segments = append([]string(nil), r.Segments...)
		clone.Rowsets[i] = &cp
	}
	return clone
}

// Weight implements cache.Value, charging the cache for the marshaled
// size of the metadata.
func (m *TabletMetadata) Weight() int64 { return int64(len(m.Marshal())) }

func (m *TabletMetadata) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, m.TabletID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Version))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.NextRowsetID))
	if m.Schema != nil {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Schema.Marshal())
	}
	for _, r := range m.Rowsets {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Marshal())
	}
	return b
}

func (m *TabletMetadata) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return base.Corruptionf("tablet metadata: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return base.Corruptionf("tablet metadata: bad tablet_id")
			}
			m.TabletID = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return base.Corruptionf("tablet metadata: bad version")
			}
			m.Version = int64(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return base.Corruptionf("tablet metadata: bad next_rowset_id")
			}
			m.NextRowsetID = uint32(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return base.Corruptionf("tablet metadata: bad schema")
			}
			s := &TabletSchema{}
			if err := s.Unmarshal(v); err != nil {
				return errors.Wrap(err, "tablet metadata: schema")
			}
			m.Schema = s
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return base.Corruptionf("tablet metadata: bad rowset")
			}
			r := &RowsetMetadata{}
			if err := r.Unmarshal(v); err != nil {
				return errors.Wrap(err, "tablet metadata: rowset")
			}
			m.Rowsets = append(m.Rowsets, r)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return base.Corruptionf("tablet metadata: bad field %d", num)
			}
			b = b[n:]
		}
	}
	return nil
}
