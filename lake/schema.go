package lake

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lakedb/lakedb/internal/base"
)

// ColumnSchema is one column of a TabletSchema, carrying the unique id
// assigned at create_tablet time.
type ColumnSchema struct {
	ID   uint32
	Name string
	Type string
}

// TabletSchema is deduped process-wide through a SchemaMap and cached
// under schema_<tabletId>.
type TabletSchema struct {
	Columns []ColumnSchema
}

// Weight implements cache.Value using the schema's own marshaled size as
// its memory-usage estimate.
func (s *TabletSchema) Weight() int64 { return int64(len(s.Marshal())) }

// fingerprint is a content-addressed dedup key: two schemas with the same
// columns in the same order are considered identical.
func (s *TabletSchema) fingerprint() string {
	key := ""
	for _, c := range s.Columns {
		key += fmt.Sprintf("%d:%s:%s|", c.ID, c.Name, c.Type)
	}
	return key
}

func (s *TabletSchema) Marshal() []byte {
	var b []byte
	for _, c := range s.Columns {
		var cb []byte
		cb = protowire.AppendTag(cb, 1, protowire.VarintType)
		cb = protowire.AppendVarint(cb, uint64(c.ID))
		cb = protowire.AppendTag(cb, 2, protowire.BytesType)
		cb = protowire.AppendBytes(cb, []byte(c.Name))
		cb = protowire.AppendTag(cb, 3, protowire.BytesType)
		cb = protowire.AppendBytes(cb, []byte(c.Type))

		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	return b
}

func (s *TabletSchema) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return base.Corruptionf("tablet schema: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			cb, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return base.Corruptionf("tablet schema: bad column")
			}
			col, err := unmarshalColumn(cb)
			if err != nil {
				return err
			}
			s.Columns = append(s.Columns, col)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return base.Corruptionf("tablet schema: bad field %d", num)
			}
			b = b[n:]
		}
	}
	return nil
}

func unmarshalColumn(b []byte) (ColumnSchema, error) {
	var c ColumnSchema
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return c, base.Corruptionf("column schema: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return c, base.Corruptionf("column schema: bad id")
			}
			c.ID = uint32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return c, base.Corruptionf("column schema: bad name")
			}
			c.Name = string(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return c, base.Corruptionf("column schema: bad type")
			}
			c.Type = string(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return c, base.Corruptionf("column schema: bad field %d", num)
			}
			b = b[n:]
		}
	}
	return c, nil
}

// SchemaMap is a process-wide dedup table so that structurally
// identical schemas across tablets share one in-memory instance.
type SchemaMap struct {
	mu    sync.Mutex
	byKey map[string]*TabletSchema
}

// NewSchemaMap returns an empty dedup table.
func NewSchemaMap() *SchemaMap {
	return &SchemaMap{byKey: make(map[string]*TabletSchema)}
}

// Dedup returns the canonical *TabletSchema equal to s, registering s as
// canonical if this is the first time its fingerprint is seen. inserted
// reports whether s itself became canonical (used by get_tablet_schema to
// decide whether to charge the cache for this schema's weight).
func (m *SchemaMap) Dedup(s *TabletSchema) (canonical *TabletSchema, inserted bool) {
	key := s.fingerprint()
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byKey[key]; ok {
		return existing, false
	}
	m.byKey[key] = s
	return s, true
}
