package lake

import (
	"context"

	"github.com/lakedb/lakedb/internal/base"
)

// Publish advances tablet from baseVersion to newVersion by replaying
// txnIDs in order against the base metadata. It is idempotent:
// a retried call after a prior successful finalization returns OK without
// re-deriving the new metadata.
func (m *Manager) Publish(ctx context.Context, tabletID uint64, baseVersion, newVersion int64, txnIDs []int64) error {
	// A retried publish whose earlier attempt already finalized new_version
	// is a pure no-op: one lookup of the target version settles it without
	// touching base metadata or any txn log.
	if _, err := m.GetTabletMetadata(ctx, tabletID, newVersion); err == nil {
		return nil
	}

	baseMD, err := m.GetTabletMetadata(ctx, tabletID, baseVersion)
	if err != nil {
		return err
	}

	next := baseMD.Clone()
	next.Version = newVersion

	for _, txnID := range txnIDs {
		log, err := m.GetTxnLog(ctx, tabletID, txnID)
		if err != nil {
			return err
		}
		if err := applyTxnLog(next, log); err != nil {
			return err
		}
	}

	if err := m.PutTabletMetadata(ctx, next); err != nil {
		return err
	}

	for _, txnID := range txnIDs {
		if err := m.DeleteTxnLog(ctx, tabletID, txnID); err != nil {
			m.logger.Warningf("publish: best-effort delete of txn log %d failed: %v", txnID, err)
		}
	}
	return nil
}

// applyTxnLog dispatches to the op-specific applier.
func applyTxnLog(md *TabletMetadata, log *TxnLog) error {
	switch {
	case log.OpWrite != nil:
		applyWriteLog(md, log.OpWrite)
		return nil
	case log.OpCompaction != nil:
		return applyCompactionLog(md, log.OpCompaction)
	case log.OpSchemaChange != nil:
		return base.ErrNotSupported
	default:
		return nil
	}
}

// applyWriteLog appends one rowset, if non-empty, assigning it the next
// id and advancing next_rowset_id by its segment count.
func applyWriteLog(md *TabletMetadata, op *OpWrite) {
	if op.Rowset == nil || op.Rowset.NumRows == 0 {
		return
	}
	rs := *op.Rowset
	rs.ID = md.NextRowsetID
	md.Rowsets = append(md.Rowsets, &rs)
	md.NextRowsetID += rs.SegmentsSize()
}

// applyCompactionLog replaces a contiguous run of input rowsets with one
// output rowset. The adjacency scan bound uses input_rowsets_size()
// rather than rowsets_size(), avoiding a latent bug when inputs exceed
// the current rowset count.
func applyCompactionLog(md *TabletMetadata, op *OpCompaction) error {
	if len(op.InputRowsets) == 0 {
		if op.OutputRowset != nil && op.OutputRowset.NumRows != 0 {
			return base.InternalErrorf("compaction: empty input but non-empty output")
		}
		return nil
	}

	firstPos := indexOfRowset(md.Rowsets, op.InputRowsets[0])
	if firstPos < 0 {
		return base.InternalErrorf("compaction: input rowset %d not found", op.InputRowsets[0])
	}

	positions := make([]int, len(op.InputRowsets))
	positions[0] = firstPos
	prev := firstPos
	for i := 1; i < len(op.InputRowsets); i++ {
		if prev+1 >= len(md.Rowsets) {
			return base.InternalErrorf("compaction: input rowsets not contiguous")
		}
		if md.Rowsets[prev+1].ID != op.InputRowsets[i] {
			return base.InternalErrorf("compaction: input rowsets not adjacent at position %d", i)
		}
		positions[i] = prev + 1
		prev = prev + 1
	}
	lastPos := positions[len(positions)-1]

	if op.OutputRowset != nil && op.OutputRowset.NumRows != 0 {
		out := *op.OutputRowset
		out.ID = md.NextRowsetID
		md.NextRowsetID += out.SegmentsSize()

		newRowsets := make([]*RowsetMetadata, 0, len(md.Rowsets)-(lastPos-firstPos))
		newRowsets = append(newRowsets, md.Rowsets[:firstPos]...)
		newRowsets = append(newRowsets, &out)
		newRowsets = append(newRowsets, md.Rowsets[lastPos+1:]...)
		md.Rowsets = newRowsets
	} else {
		newRowsets := make([]*RowsetMetadata, 0, len(md.Rowsets)-(lastPos-firstPos+1))
		newRowsets = append(newRowsets, md.Rowsets[:firstPos]...)
		newRowsets = append(newRowsets, md.Rowsets[lastPos+1:]...)
		md.Rowsets = newRowsets
	}
	return nil
}

func indexOfRowset(rowsets []*RowsetMetadata, id uint32) int {
	for i, r := range rowsets {
		if r.ID == id {
			return i
		}
	}
	return -1
}
