package lake

import "context"

// Tablet is the shared handle materialized from a TabletMetadata, bound
// into a HorizontalCompactionTask.
type Tablet struct {
	ID     uint64
	Schema *TabletSchema
}

// Rowset is the runtime counterpart of a RowsetMetadata entry, one per
// metadata rowset.
type Rowset struct {
	Meta *RowsetMetadata
}

// HorizontalCompactionTask binds the inputs a compaction execution would
// need. It has no Execute method: the physical merge of input rowsets
// into an output segment is out of scope.
type HorizontalCompactionTask struct {
	TxnID        int64
	Version      int64
	Tablet       *Tablet
	InputRowsets []*Rowset
}

// Compact reads the metadata at version, builds a Tablet handle, and
// materializes one Rowset per rowset-metadata entry, returning the
// bound-but-unexecuted task.
func (m *Manager) Compact(ctx context.Context, tabletID uint64, version int64, txnID int64) (*HorizontalCompactionTask, error) {
	md, err := m.GetTabletMetadata(ctx, tabletID, version)
	if err != nil {
		return nil, err
	}

	tablet := &Tablet{ID: md.TabletID, Schema: md.Schema}
	rowsets := make([]*Rowset, len(md.Rowsets))
	for i, rm := range md.Rowsets {
		rowsets[i] = &Rowset{Meta: rm}
	}

	return &HorizontalCompactionTask{
		TxnID:        txnID,
		Version:      version,
		Tablet:       tablet,
		InputRowsets: rowsets,
	}, nil
}
