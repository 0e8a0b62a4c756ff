package lake

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
)

// parseRowsets parses a spec like "1:10:2,3:5:1" (id:num_rows:segments)
// into RowsetMetadata{ID, NumRows, Segments}, with one generated segment
// name per declared segment so SegmentsSize matches the script.
func parseRowsets(t *testing.T, spec string) []*RowsetMetadata {
	if spec == "" {
		return nil
	}
	var out []*RowsetMetadata
	for _, tok := range strings.Split(spec, ",") {
		parts := strings.Split(tok, ":")
		if len(parts) != 3 {
			t.Fatalf("bad rowset spec %q", tok)
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			t.Fatal(err)
		}
		rows, err := strconv.Atoi(parts[1])
		if err != nil {
			t.Fatal(err)
		}
		nsegs, err := strconv.Atoi(parts[2])
		if err != nil {
			t.Fatal(err)
		}
		segs := make([]string, nsegs)
		for i := range segs {
			segs[i] = fmt.Sprintf("seg%d_%d", id, i)
		}
		out = append(out, &RowsetMetadata{ID: uint32(id), NumRows: int64(rows), Segments: segs})
	}
	return out
}

func formatMetadata(md *TabletMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "next_rowset_id=%d\n", md.NextRowsetID)
	fmt.Fprintf(&b, "rowsets=")
	for i, r := range md.Rowsets {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%d:%d:%d", r.ID, r.NumRows, len(r.Segments))
	}
	b.WriteString("\n")
	return b.String()
}

// TestApplyTxnLog exercises applyWriteLog and applyCompactionLog directly
// against hand-built metadata, covering the compaction adjacency
// invariant and op_write's next-rowset-id bookkeeping.
func TestApplyTxnLog(t *testing.T) {
	var md *TabletMetadata

	datadriven.RunTest(t, "testdata/apply", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "metadata":
			var rowsets, nextID string
			td.MaybeScanArgs(t, "rowsets", &rowsets)
			td.MaybeScanArgs(t, "next_rowset_id", &nextID)
			n, err := strconv.Atoi(nextID)
			if err != nil {
				t.Fatal(err)
			}
			md = &TabletMetadata{
				TabletID:     1,
				Version:      1,
				NextRowsetID: uint32(n),
				Rowsets:      parseRowsets(t, rowsets),
			}
			return formatMetadata(md)

		case "apply_write":
			var rows, segs string
			td.MaybeScanArgs(t, "rows", &rows)
			td.MaybeScanArgs(t, "segments", &segs)
			nrows, _ := strconv.Atoi(rows)
			nsegs, _ := strconv.Atoi(segs)
			segNames := make([]string, nsegs)
			for i := range segNames {
				segNames[i] = fmt.Sprintf("new_seg_%d", i)
			}
			applyWriteLog(md, &OpWrite{Rowset: &RowsetMetadata{NumRows: int64(nrows), Segments: segNames}})
			return formatMetadata(md)

		case "apply_compaction":
			var inputs, outRows, outSegs string
			td.MaybeScanArgs(t, "inputs", &inputs)
			td.MaybeScanArgs(t, "output_rows", &outRows)
			td.MaybeScanArgs(t, "output_segments", &outSegs)

			var inputIDs []uint32
			if inputs != "" {
				for _, tok := range strings.Split(inputs, ",") {
					id, err := strconv.Atoi(tok)
					if err != nil {
						t.Fatal(err)
					}
					inputIDs = append(inputIDs, uint32(id))
				}
			}
			var out *RowsetMetadata
			if outRows != "" {
				nrows, _ := strconv.Atoi(outRows)
				nsegs, _ := strconv.Atoi(outSegs)
				segNames := make([]string, nsegs)
				for i := range segNames {
					segNames[i] = fmt.Sprintf("compacted_seg_%d", i)
				}
				out = &RowsetMetadata{NumRows: int64(nrows), Segments: segNames}
			}

			err := applyCompactionLog(md, &OpCompaction{InputRowsets: inputIDs, OutputRowset: out})
			if err != nil {
				return "error: " + err.Error() + "\n" + formatMetadata(md)
			}
			return formatMetadata(md)

		default:
			t.Fatalf("unknown command %q", td.Cmd)
			return ""
		}
	})
}
