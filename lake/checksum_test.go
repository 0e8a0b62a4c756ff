package lake

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lakedb/lakedb/internal/base"
)

func TestWrapUnwrapObjectRoundTrip(t *testing.T) {
	payload := []byte("a tablet metadata protobuf payload, repeated repeated repeated")
	wrapped := wrapObject(payload)

	got, err := unwrapObject(wrapped)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestUnwrapObjectDetectsBitFlip(t *testing.T) {
	wrapped := wrapObject([]byte("payload"))
	wrapped[0] ^= 0xff

	_, err := unwrapObject(wrapped)
	require.Error(t, err)
	require.True(t, base.IsCorruption(err))
}

func TestUnwrapObjectRejectsShortFrame(t *testing.T) {
	_, err := unwrapObject([]byte{1, 2, 3})
	require.Error(t, err)
	require.True(t, base.IsCorruption(err))
}

func TestWrapObjectHandlesEmptyPayload(t *testing.T) {
	wrapped := wrapObject(nil)
	got, err := unwrapObject(wrapped)
	require.NoError(t, err)
	require.Empty(t, got)
}
