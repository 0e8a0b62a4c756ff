package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePriorityBoundsAndMonotonicity(t *testing.T) {
	prev := computePriority(0)
	require.Equal(t, 20, prev)
	require.LessOrEqual(t, prev, 20)
	require.GreaterOrEqual(t, prev, 0)

	for n := int32(1); n < 3000; n++ {
		cur := computePriority(n)
		require.LessOrEqual(t, cur, prev, "priority must be non-increasing at n=%d", n)
		require.GreaterOrEqual(t, cur, 0)
		require.LessOrEqual(t, cur, 20)
		prev = cur
	}
}

func TestComputePriorityThresholdCrossings(t *testing.T) {
	require.Equal(t, 20, computePriority(4))
	require.Equal(t, 19, computePriority(5))
	require.Equal(t, 19, computePriority(18))
	require.Equal(t, 18, computePriority(19))
	require.Equal(t, 0, computePriority(2395))
	require.Equal(t, 0, computePriority(1_000_000))
}
