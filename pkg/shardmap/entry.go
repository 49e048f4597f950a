package shardmap

// Entry is a handle on the slot for one key, occupied or vacant, obtained
// under the shard's write lock. The lock is taken exactly once, before
// the slot is classified, and stays held until the entry is consumed by
// an inserting method, converted into a RefMut, or released. The hash is
// cached at classification time.
//
// Every method that returns a RefMut or an OccupiedEntry hands the held
// write lock over without unlocking in between; there is no window in
// which another writer can observe the slot.
type Entry[K comparable, V any] struct {
	shard    *Shard[K, V]
	hash     uint64
	key      K
	cell     *V // nil for a vacant slot
	released bool
}

// Entry classifies the slot for key under the shard's write lock.
func (m *Map[K, V]) Entry(key K) *Entry[K, V] {
	hash := m.hasher.Hash(key)
	s := m.shards[hash>>m.shift]
	s.Lock()

	return &Entry[K, V]{
		shard: s,
		hash:  hash,
		key:   key,
		cell:  s.items[key],
	}
}

// IsOccupied reports whether the slot holds a value.
func (e *Entry[K, V]) IsOccupied() bool {
	return e.cell != nil
}

func (e *Entry[K, V]) Key() K {
	return e.key
}

// Hash returns the cached hash computed at classification.
func (e *Entry[K, V]) Hash() uint64 {
	return e.hash
}

// AndModify runs f on the value when the slot is occupied and returns the
// entry either way, still holding the lock.
func (e *Entry[K, V]) AndModify(f func(value *V)) *Entry[K, V] {
	e.mustBeLive()
	if e.cell != nil {
		f(e.cell)
	}
	return e
}

// OrInsert installs value when the slot is vacant and returns a RefMut to
// whichever value the slot now holds. The entry is consumed.
func (e *Entry[K, V]) OrInsert(value V) *RefMut[K, V] {
	return e.OrInsertWith(func() V { return value })
}

// OrInsertWith is OrInsert with a lazily computed value; f runs only for
// a vacant slot, under the write lock.
func (e *Entry[K, V]) OrInsertWith(f func() V) *RefMut[K, V] {
	e.mustBeLive()
	e.released = true
	if e.cell == nil {
		cell := new(V)
		*cell = f()
		e.shard.items[e.key] = cell
		e.cell = cell
	}
	return newRefMut(e.shard, e.key, e.cell)
}

// OrDefault is OrInsert with the zero value of V.
func (e *Entry[K, V]) OrDefault() *RefMut[K, V] {
	return e.OrInsertWith(func() (zero V) { return zero })
}

// OrTryInsertWith is OrInsertWith with a fallible constructor. On error
// the vacant slot stays vacant, the lock is released and the callback's
// error is returned verbatim.
func (e *Entry[K, V]) OrTryInsertWith(f func() (V, error)) (*RefMut[K, V], error) {
	e.mustBeLive()
	e.released = true
	if e.cell == nil {
		value, err := f()
		if err != nil {
			e.shard.Unlock()
			return nil, err
		}
		cell := new(V)
		*cell = value
		e.shard.items[e.key] = cell
		e.cell = cell
	}
	return newRefMut(e.shard, e.key, e.cell), nil
}

// Insert unconditionally installs value, discarding any previous one, and
// returns a RefMut to it. The entry is consumed.
func (e *Entry[K, V]) Insert(value V) *RefMut[K, V] {
	e.mustBeLive()
	e.released = true
	e.install(value)
	return newRefMut(e.shard, e.key, e.cell)
}

// InsertEntry is Insert but keeps the entry form, returning an
// OccupiedEntry over the freshly installed value.
func (e *Entry[K, V]) InsertEntry(value V) *OccupiedEntry[K, V] {
	e.mustBeLive()
	e.install(value)
	return &OccupiedEntry[K, V]{e: e}
}

func (e *Entry[K, V]) install(value V) {
	if e.cell == nil {
		e.cell = new(V)
		e.shard.items[e.key] = e.cell
	}
	*e.cell = value
}

// Occupied narrows the entry. The returned OccupiedEntry shares the
// entry's lock; ok is false for a vacant slot, with the entry untouched.
func (e *Entry[K, V]) Occupied() (*OccupiedEntry[K, V], bool) {
	e.mustBeLive()
	if e.cell == nil {
		return nil, false
	}
	return &OccupiedEntry[K, V]{e: e}, true
}

// Vacant narrows the entry; ok is false for an occupied slot.
func (e *Entry[K, V]) Vacant() (*VacantEntry[K, V], bool) {
	e.mustBeLive()
	if e.cell != nil {
		return nil, false
	}
	return &VacantEntry[K, V]{e: e}, true
}

// Release drops the write lock without touching the slot. Releasing a
// consumed entry panics.
func (e *Entry[K, V]) Release() {
	e.mustBeLive()
	e.released = true
	e.shard.Unlock()
}

func (e *Entry[K, V]) mustBeLive() {
	if e.released {
		panic("shardmap: use of consumed Entry")
	}
}

// OccupiedEntry is an Entry known to hold a value. It borrows the entry's
// write lock; consuming methods release or hand it over.
type OccupiedEntry[K comparable, V any] struct {
	e *Entry[K, V]
}

func (o *OccupiedEntry[K, V]) Key() K {
	return o.e.key
}

func (o *OccupiedEntry[K, V]) Value() V {
	o.e.mustBeLive()
	return *o.e.cell
}

// ValuePtr exposes the value cell for in-place mutation under the held
// write lock.
func (o *OccupiedEntry[K, V]) ValuePtr() *V {
	o.e.mustBeLive()
	return o.e.cell
}

// IntoRef converts the occupied entry into a RefMut over the same value,
// handing the write lock over without unlocking.
func (o *OccupiedEntry[K, V]) IntoRef() *RefMut[K, V] {
	o.e.mustBeLive()
	o.e.released = true
	return newRefMut(o.e.shard, o.e.key, o.e.cell)
}

// ReplaceValue swaps the stored value and returns the previous one. The
// entry stays live and locked.
func (o *OccupiedEntry[K, V]) ReplaceValue(value V) V {
	o.e.mustBeLive()
	previous := *o.e.cell
	*o.e.cell = value
	return previous
}

// Remove deletes the entry, releases the lock and returns the value.
func (o *OccupiedEntry[K, V]) Remove() V {
	_, v := o.RemoveEntry()
	return v
}

// RemoveEntry deletes the entry, releases the lock and returns the pair.
func (o *OccupiedEntry[K, V]) RemoveEntry() (K, V) {
	o.e.mustBeLive()
	o.e.released = true
	value := *o.e.cell
	delete(o.e.shard.items, o.e.key)
	o.e.shard.Unlock()
	return o.e.key, value
}

// Release drops the write lock, leaving the entry stored.
func (o *OccupiedEntry[K, V]) Release() {
	o.e.Release()
}

// VacantEntry is an Entry known to be empty. Inserting through it fills
// the slot classified earlier without re-hashing or re-locking.
type VacantEntry[K comparable, V any] struct {
	e *Entry[K, V]
}

func (v *VacantEntry[K, V]) Key() K {
	return v.e.key
}

// Insert fills the slot and returns a RefMut to the new value, handing
// the write lock over without unlocking.
func (v *VacantEntry[K, V]) Insert(value V) *RefMut[K, V] {
	return v.e.Insert(value)
}

// InsertEntry fills the slot and returns the occupied form.
func (v *VacantEntry[K, V]) InsertEntry(value V) *OccupiedEntry[K, V] {
	return v.e.InsertEntry(value)
}

// IntoKey releases the lock and yields the key back to the caller.
func (v *VacantEntry[K, V]) IntoKey() K {
	v.e.Release()
	return v.e.key
}

// Release drops the write lock, leaving the slot vacant.
func (v *VacantEntry[K, V]) Release() {
	v.e.Release()
}
