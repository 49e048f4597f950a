package shardmap

import "sync/atomic"

// sharedReadGuard is a reference-counted hold on one shard's read lock.
// The iterator owns one share while it walks the shard; every yielded
// RefMulti owns another. The underlying RUnlock runs when the last share
// is released, so guards kept by the caller outlive the iterator's pass
// over their shard.
type sharedReadGuard[K comparable, V any] struct {
	shard *Shard[K, V]
	refs  atomic.Int64
}

func newSharedReadGuard[K comparable, V any](shard *Shard[K, V]) *sharedReadGuard[K, V] {
	shard.RLock()
	g := &sharedReadGuard[K, V]{shard: shard}
	g.refs.Store(1)
	return g
}

func (g *sharedReadGuard[K, V]) acquire() {
	g.refs.Add(1)
}

func (g *sharedReadGuard[K, V]) release() {
	if g.refs.Add(-1) == 0 {
		g.shard.RUnlock()
	}
}

// sharedWriteGuard is the write-mode counterpart used by IterMut. The
// write lock stays exclusive to the iterator and its yielded guards as a
// group; siblings within the group share it.
type sharedWriteGuard[K comparable, V any] struct {
	shard *Shard[K, V]
	refs  atomic.Int64
}

func newSharedWriteGuard[K comparable, V any](shard *Shard[K, V]) *sharedWriteGuard[K, V] {
	shard.Lock()
	g := &sharedWriteGuard[K, V]{shard: shard}
	g.refs.Store(1)
	return g
}

func (g *sharedWriteGuard[K, V]) acquire() {
	g.refs.Add(1)
}

func (g *sharedWriteGuard[K, V]) release() {
	if g.refs.Add(-1) == 0 {
		g.shard.Unlock()
	}
}

// RefMulti borrows one entry during read iteration. It shares its shard's
// read lock with the iterator and with sibling guards from the same
// shard, so keeping it alive after the iterator advanced is valid.
type RefMulti[K comparable, V any] struct {
	guard    *sharedReadGuard[K, V]
	key      K
	cell     *V
	released bool
}

func newRefMulti[K comparable, V any](guard *sharedReadGuard[K, V], key K, cell *V) *RefMulti[K, V] {
	guard.acquire()
	return &RefMulti[K, V]{guard: guard, key: key, cell: cell}
}

func (r *RefMulti[K, V]) Key() K {
	return r.key
}

func (r *RefMulti[K, V]) Value() V {
	return *r.cell
}

func (r *RefMulti[K, V]) Pair() (K, V) {
	return r.key, *r.cell
}

// Release drops this guard's share of the shard read lock. Releasing
// twice panics.
func (r *RefMulti[K, V]) Release() {
	if r.released {
		panic("shardmap: RefMulti released twice")
	}
	r.released = true
	r.guard.release()
}

// RefMutMulti borrows one entry during mutable iteration, sharing the
// shard write lock with the iterator and its siblings.
type RefMutMulti[K comparable, V any] struct {
	guard    *sharedWriteGuard[K, V]
	key      K
	cell     *V
	released bool
}

func newRefMutMulti[K comparable, V any](guard *sharedWriteGuard[K, V], key K, cell *V) *RefMutMulti[K, V] {
	guard.acquire()
	return &RefMutMulti[K, V]{guard: guard, key: key, cell: cell}
}

func (r *RefMutMulti[K, V]) Key() K {
	return r.key
}

func (r *RefMutMulti[K, V]) Value() V {
	return *r.cell
}

func (r *RefMutMulti[K, V]) Pair() (K, V) {
	return r.key, *r.cell
}

// ValuePtr exposes the value cell for in-place mutation. The pointer must
// not be used after the guard is released.
func (r *RefMutMulti[K, V]) ValuePtr() *V {
	return r.cell
}

func (r *RefMutMulti[K, V]) Set(value V) {
	*r.cell = value
}

// Release drops this guard's share of the shard write lock. Releasing
// twice panics.
func (r *RefMutMulti[K, V]) Release() {
	if r.released {
		panic("shardmap: RefMutMulti released twice")
	}
	r.released = true
	r.guard.release()
}
