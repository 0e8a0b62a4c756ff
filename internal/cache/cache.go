// Package cache implements the MetaCache: a sharded, weight-bounded,
// handle-refcounted cache sitting in front of the object store for
// TabletMetadata, TxnLog, and TabletSchema lookups.
//
// A block cache shards a CLOCK-Pro cache keyed by (fileNum, offset) with
// manually-managed off-heap buffers, since block cache values are raw
// bytes that must avoid GC pressure at scale. Our cached values are
// small, already-GC'd Go pointers (*lake.TabletMetadata and friends), so
// CLOCK-Pro's off-heap bookkeeping buys nothing here; this is a plain
// sharded LRU instead, keeping the same sharding strategy (shard count
// scales with GOMAXPROCS) and handle-must-be-released contract.
package cache

import (
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/swiss"
)

// Value is anything storable in the cache. Weight charges the entry
// against the owning shard's capacity; callers typically return the
// serialized size of the underlying proto message.
type Value interface {
	Weight() int64
}

type entry struct {
	key    string
	value  Value
	refs   int32 // 1 for the cache's own reference, +1 per outstanding Handle
	weight int64

	next, prev *entry // intrusive LRU list, most-recently-used at head
}

// Handle is a live reference to a cached Value. Callers must call Release
// exactly once when done.
type Handle struct {
	shard *shard
	e     *entry
}

// Value returns the handle's underlying value. Calling it after Release
// is a use-after-free bug in the caller.
func (h Handle) Value() Value {
	if h.e == nil {
		return nil
	}
	return h.e.value
}

// Release drops this handle's reference. Valid to call on a zero Handle
// (a no-op), matching Get's false-path usage.
func (h Handle) Release() {
	if h.e == nil {
		return
	}
	h.shard.unref(h.e)
}

// Cache is a sharded, weight-bounded lookup cache.
type Cache struct {
	shards []shard
	mask   uint64
}

// New creates a cache with the given total byte budget, split evenly
// across 4*GOMAXPROCS shards rounded up to a power of two, the same
// shard-count heuristic a typical block cache uses.
func New(capacity int64) *Cache {
	n := 4 * runtime.GOMAXPROCS(0)
	// Round up to a power of two so shard selection is a mask, not a mod.
	shardCount := 1
	for shardCount < n {
		shardCount <<= 1
	}
	c := &Cache{
		shards: make([]shard, shardCount),
		mask:   uint64(shardCount - 1),
	}
	perShard := capacity / int64(shardCount)
	for i := range c.shards {
		c.shards[i].init(perShard)
	}
	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := xxhash.Sum64String(key)
	return &c.shards[h&c.mask]
}

// Get looks up key, returning a Handle the caller must Release. ok is
// false if the key is absent.
func (c *Cache) Get(key string) (h Handle, ok bool) {
	return c.shardFor(key).get(key)
}

// Set inserts or replaces key's value, returning a Handle for the
// caller's own immediate use (so a fill doesn't require a second Get).
// Insertion may evict other entries from the same shard to stay within
// budget; entries with outstanding handles are never evicted.
func (c *Cache) Set(key string, v Value) Handle {
	return c.shardFor(key).set(key, v)
}

// Delete evicts key immediately, if present. Outstanding handles remain
// valid until released; the entry is simply unlinked from the index.
func (c *Cache) Delete(key string) {
	c.shardFor(key).delete(key)
}

// DeletePrefix evicts every key with the given prefix, in every shard.
func (c *Cache) DeletePrefix(prefix string) {
	for i := range c.shards {
		c.shards[i].deletePrefix(prefix)
	}
}

type shard struct {
	mu       sync.Mutex
	index    swiss.Map[string, *entry]
	lruHead  *entry // sentinel; lruHead.next is most-recently-used
	lruTail  *entry // sentinel; lruTail.prev is least-recently-used
	capacity int64
	used     int64
}

func (s *shard) init(capacity int64) {
	s.index.Init(16)
	s.capacity = capacity
	s.lruHead = &entry{}
	s.lruTail = &entry{}
	s.lruHead.next = s.lruTail
	s.lruTail.prev = s.lruHead
}

func (s *shard) get(key string) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index.Get(key)
	if !ok {
		return Handle{}, false
	}
	e.refs++
	s.touchLocked(e)
	return Handle{shard: s, e: e}, true
}

func (s *shard) set(key string, v Value) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.index.Get(key); ok {
		s.unlinkLocked(old)
		s.used -= old.weight
		s.index.Delete(key)
	}

	e := &entry{key: key, value: v, weight: v.Weight(), refs: 2}
	s.index.Put(key, e)
	s.used += e.weight
	s.linkFrontLocked(e)

	s.evictLocked()

	return Handle{shard: s, e: e}
}

func (s *shard) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index.Get(key)
	if !ok {
		return
	}
	s.index.Delete(key)
	s.unlinkLocked(e)
	s.used -= e.weight
	e.refs-- // drop the cache's own reference; outstanding handles persist
}

func (s *shard) deletePrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toDrop []string
	s.index.All(func(k string, _ *entry) bool {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			toDrop = append(toDrop, k)
		}
		return true
	})
	for _, k := range toDrop {
		e, ok := s.index.Get(k)
		if !ok {
			continue
		}
		s.index.Delete(k)
		s.unlinkLocked(e)
		s.used -= e.weight
		e.refs--
	}
}

func (s *shard) unref(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
}

// evictLocked walks the LRU tail, dropping cache-only-referenced entries
// until the shard is back within budget or no evictable entry remains.
func (s *shard) evictLocked() {
	var firstPinned *entry
	for s.used > s.capacity {
		victim := s.lruTail.prev
		if victim == s.lruHead || victim == firstPinned {
			return // every remaining entry has been tried
		}
		if victim.refs > 1 {
			// Still handed out; skip past it rather than evict live data.
			// Move it to the front so the scan doesn't spin on it forever.
			if firstPinned == nil {
				firstPinned = victim
			}
			s.unlinkLocked(victim)
			s.linkFrontLocked(victim)
			continue
		}
		s.index.Delete(victim.key)
		s.unlinkLocked(victim)
		s.used -= victim.weight
		victim.refs--
	}
}

func (s *shard) touchLocked(e *entry) {
	s.unlinkLocked(e)
	s.linkFrontLocked(e)
}

func (s *shard) unlinkLocked(e *entry) {
	if e.next == nil && e.prev == nil {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next, e.prev = nil, nil
}

func (s *shard) linkFrontLocked(e *entry) {
	e.next = s.lruHead.next
	e.prev = s.lruHead
	s.lruHead.next.prev = e
	s.lruHead.next = e
}
