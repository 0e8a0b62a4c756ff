package lake

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"

	"github.com/lakedb/lakedb/internal/base"
)

// wrapObject snappy-compresses payload and trails it with an xxhash64
// checksum of the compressed bytes.
func wrapObject(payload []byte) []byte {
	compressed := snappy.Encode(nil, payload)
	sum := xxhash.Sum64(compressed)
	out := make([]byte, len(compressed)+8)
	copy(out, compressed)
	binary.LittleEndian.PutUint64(out[len(compressed):], sum)
	return out
}

// unwrapObject validates the trailing checksum and snappy-decompresses
// the body. A mismatch or corrupt frame surfaces as base.ErrCorruption.
func unwrapObject(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, base.Corruptionf("object too short: %d bytes", len(raw))
	}
	compressed := raw[:len(raw)-8]
	wantSum := binary.LittleEndian.Uint64(raw[len(raw)-8:])
	gotSum := xxhash.Sum64(compressed)
	if gotSum != wantSum {
		return nil, base.Corruptionf("checksum mismatch: got %x want %x", gotSum, wantSum)
	}
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, base.Corruptionf("snappy decode: %v", err)
	}
	return payload, nil
}
