package lake

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lakedb/lakedb/internal/base"
)

// OpWrite appends one rowset produced by a write.
type OpWrite struct {
	Rowset *RowsetMetadata
}

// OpCompaction replaces a contiguous run of input rowsets with one output
// rowset.
type OpCompaction struct {
	InputRowsets []uint32
	OutputRowset *RowsetMetadata
}

// OpSchemaChange is always rejected by apply: the publish
// path never supports schema evolution.
type OpSchemaChange struct{}

// TxnLog is a proposed mutation to a tablet's metadata, applied at
// publish time. Serialized at txn_<tabletId:016X>_<txnId>.
type TxnLog struct {
	TabletID uint64
	TxnID    int64

	OpWrite        *OpWrite
	OpCompaction   *OpCompaction
	OpSchemaChange *OpSchemaChange
}

// Weight implements cache.Value.
func (t *TxnLog) Weight() int64 { return int64(len(t.Marshal())) }

func (t *TxnLog) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, t.TabletID)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.TxnID))

	if t.OpWrite != nil {
		var ob []byte
		if t.OpWrite.Rowset != nil {
			ob = protowire.AppendTag(ob, 1, protowire.BytesType)
			ob = protowire.AppendBytes(ob, t.OpWrite.Rowset.Marshal())
		}
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, ob)
	}
	if t.OpCompaction != nil {
		var ob []byte
		for _, id := range t.OpCompaction.InputRowsets {
			ob = protowire.AppendTag(ob, 1, protowire.VarintType)
			ob = protowire.AppendVarint(ob, uint64(id))
		}
		if t.OpCompaction.OutputRowset != nil {
			ob = protowire.AppendTag(ob, 2, protowire.BytesType)
			ob = protowire.AppendBytes(ob, t.OpCompaction.OutputRowset.Marshal())
		}
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, ob)
	}
	if t.OpSchemaChange != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, nil)
	}
	return b
}

func (t *TxnLog) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return base.Corruptionf("txn log: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return base.Corruptionf("txn log: bad tablet_id")
			}
			t.TabletID = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return base.Corruptionf("txn log: bad txn_id")
			}
			t.TxnID = int64(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return base.Corruptionf("txn log: bad op_write")
			}
			ow, err := unmarshalOpWrite(v)
			if err != nil {
				return err
			}
			t.OpWrite = ow
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return base.Corruptionf("txn log: bad op_compaction")
			}
			oc, err := unmarshalOpCompaction(v)
			if err != nil {
				return err
			}
			t.OpCompaction = oc
			b = b[n:]
		case 5:
			_, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return base.Corruptionf("txn log: bad op_schema_change")
			}
			t.OpSchemaChange = &OpSchemaChange{}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return base.Corruptionf("txn log: bad field %d", num)
			}
			b = b[n:]
		}
	}
	return nil
}

func unmarshalOpWrite(b []byte) (*OpWrite, error) {
	ow := &OpWrite{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, base.Corruptionf("op_write: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, base.Corruptionf("op_write: bad rowset")
			}
			r := &RowsetMetadata{}
			if err := r.Unmarshal(v); err != nil {
				return nil, err
			}
			ow.Rowset = r
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, base.Corruptionf("op_write: bad field %d", num)
			}
			b = b[n:]
		}
	}
	return ow, nil
}

func unmarshalOpCompaction(b []byte) (*OpCompaction, error) {
	oc := &OpCompaction{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, base.Corruptionf("op_compaction: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, base.Corruptionf("op_compaction: bad input_rowsets")
			}
			oc.InputRowsets = append(oc.InputRowsets, uint32(v))
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, base.Corruptionf("op_compaction: bad output_rowset")
			}
			r := &RowsetMetadata{}
			if err := r.Unmarshal(v); err != nil {
				return nil, err
			}
			oc.OutputRowset = r
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, base.Corruptionf("op_compaction: bad field %d", num)
			}
			b = b[n:]
		}
	}
	return oc, nil
}
