package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testValue struct {
	weight int64
}

func (v testValue) Weight() int64 { return v.weight }

func TestGetSetRoundTrip(t *testing.T) {
	c := New(1 << 20)
	h := c.Set("k1", testValue{weight: 10})
	require.Equal(t, testValue{weight: 10}, h.Value())
	h.Release()

	h2, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, testValue{weight: 10}, h2.Value())
	h2.Release()
}

func TestGetMissing(t *testing.T) {
	c := New(1 << 20)
	_, ok := c.Get("absent")
	require.False(t, ok)
}

func TestDelete(t *testing.T) {
	c := New(1 << 20)
	c.Set("k1", testValue{weight: 1}).Release()
	c.Delete("k1")
	_, ok := c.Get("k1")
	require.False(t, ok)
}

func TestDeletePrefix(t *testing.T) {
	c := New(1 << 20)
	c.Set("tbl_A_1", testValue{weight: 1}).Release()
	c.Set("tbl_A_2", testValue{weight: 1}).Release()
	c.Set("tbl_B_1", testValue{weight: 1}).Release()

	c.DeletePrefix("tbl_A_")

	_, ok := c.Get("tbl_A_1")
	require.False(t, ok)
	_, ok = c.Get("tbl_A_2")
	require.False(t, ok)
	_, ok = c.Get("tbl_B_1")
	require.True(t, ok)
}

// TestEvictionRespectsCapacity verifies the LRU eviction property: after
// inserting past a shard's budget, total cached weight for that shard stays
// bounded and the most recently used entries are retained over cold ones.
func TestEvictionRespectsCapacity(t *testing.T) {
	// New picks its shard count from GOMAXPROCS, which would make shard
	// placement unpredictable, so the test builds a one-shard cache by hand
	// with a tiny budget and drives many distinct keys through it:
	// eventually only the most recently touched entries survive.
	c := &Cache{shards: make([]shard, 1), mask: 0}
	c.shards[0].init(30)

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		c.shards[0].set(key, testValue{weight: 10}).Release()
	}

	// Only the 3 most recent keys (weight 10 each, capacity 30) survive.
	_, ok := c.shards[0].get("a")
	require.False(t, ok)
	_, ok = c.shards[0].get("j")
	require.True(t, ok)
}

// TestHandleKeepsEntryAliveDuringEviction ensures an entry with an
// outstanding handle is never evicted out from under its caller (spec
// §4.4.1: "Lookups returning a handle must be released exactly once").
func TestHandleKeepsEntryAliveDuringEviction(t *testing.T) {
	c := &Cache{shards: make([]shard, 1), mask: 0}
	c.shards[0].init(20)

	h := c.shards[0].set("held", testValue{weight: 10})
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		c.shards[0].set(key, testValue{weight: 10}).Release()
	}

	require.Equal(t, testValue{weight: 10}, h.Value())
	h.Release()
}
