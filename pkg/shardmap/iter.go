package shardmap

// Iter walks the map shard by shard under one read lock at a time, in
// ascending shard order. Within a shard the order is the table's own and
// is not stable across mutations.
//
// The iterator is weakly consistent: entries inserted into a shard that
// was already visited are missed, entries inserted into a not yet visited
// shard are seen, and inserting into the shard currently being iterated
// deadlocks. Close must be called when iteration stops early; exhausting
// the iterator closes it implicitly.
type Iter[K comparable, V any] struct {
	m        *Map[K, V]
	shardIdx int
	guard    *sharedReadGuard[K, V]
	keys     []K
	keyIdx   int
	closed   bool
}

// Iter begins a read iteration. No lock is taken until the first Next.
func (m *Map[K, V]) Iter() *Iter[K, V] {
	return &Iter[K, V]{m: m}
}

// Next yields the next entry as a RefMulti sharing the current shard's
// read lock, or ok=false when the map is exhausted. Each yielded guard
// must be released by the caller; a kept guard stays valid after Next
// moved on, even across shards.
func (it *Iter[K, V]) Next() (*RefMulti[K, V], bool) {
	if it.closed {
		return nil, false
	}
	for {
		if it.guard == nil {
			if it.shardIdx >= len(it.m.shards) {
				it.closed = true
				return nil, false
			}
			shard := it.m.shards[it.shardIdx]
			it.guard = newSharedReadGuard(shard)
			it.keys = shard.appendKeys(it.keys[:0])
			it.keyIdx = 0
		}

		shard := it.m.shards[it.shardIdx]
		for it.keyIdx < len(it.keys) {
			key := it.keys[it.keyIdx]
			it.keyIdx++
			if cell, found := shard.items[key]; found {
				return newRefMulti(it.guard, key, cell), true
			}
		}

		it.guard.release()
		it.guard = nil
		it.shardIdx++
	}
}

// Close releases the iterator's hold on the current shard, if any.
// Guards yielded earlier stay valid; they own their own shares.
func (it *Iter[K, V]) Close() {
	if it.closed {
		return
	}
	it.closed = true
	if it.guard != nil {
		it.guard.release()
		it.guard = nil
	}
}

// IterMut is Iter under write locks, yielding RefMutMulti guards that
// permit in-place mutation of the visited values.
type IterMut[K comparable, V any] struct {
	m        *Map[K, V]
	shardIdx int
	guard    *sharedWriteGuard[K, V]
	keys     []K
	keyIdx   int
	closed   bool
}

// IterMut begins a mutable iteration.
func (m *Map[K, V]) IterMut() *IterMut[K, V] {
	return &IterMut[K, V]{m: m}
}

// Next yields the next entry, or ok=false when the map is exhausted.
func (it *IterMut[K, V]) Next() (*RefMutMulti[K, V], bool) {
	if it.closed {
		return nil, false
	}
	for {
		if it.guard == nil {
			if it.shardIdx >= len(it.m.shards) {
				it.closed = true
				return nil, false
			}
			shard := it.m.shards[it.shardIdx]
			it.guard = newSharedWriteGuard(shard)
			it.keys = shard.appendKeys(it.keys[:0])
			it.keyIdx = 0
		}

		shard := it.m.shards[it.shardIdx]
		for it.keyIdx < len(it.keys) {
			key := it.keys[it.keyIdx]
			it.keyIdx++
			if cell, found := shard.items[key]; found {
				return newRefMutMulti(it.guard, key, cell), true
			}
		}

		it.guard.release()
		it.guard = nil
		it.shardIdx++
	}
}

// Close releases the iterator's hold on the current shard, if any.
func (it *IterMut[K, V]) Close() {
	if it.closed {
		return
	}
	it.closed = true
	if it.guard != nil {
		it.guard.release()
		it.guard = nil
	}
}

// Range runs f over the entries shard by shard under read locks, stopping
// when f returns false. f must not re-enter the map on the shard it is
// visiting.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	for _, s := range m.shards {
		s.RLock()
		for k, cell := range s.items {
			if !f(k, *cell) {
				s.RUnlock()
				return
			}
		}
		s.RUnlock()
	}
}

// Keys collects every key present at the moment each shard is visited.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	for _, s := range m.shards {
		s.RLock()
		keys = s.appendKeys(keys)
		s.RUnlock()
	}
	return keys
}

func (s *Shard[K, V]) appendKeys(keys []K) []K {
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys
}
