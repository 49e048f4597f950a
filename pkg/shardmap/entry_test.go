package shardmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryOrInsertIdempotence(t *testing.T) {
	m := New[int, int]()

	ref := m.Entry(5).OrInsert(10)
	assert.Equal(t, 10, ref.Value())
	ref.Release()

	ref = m.Entry(5).OrInsert(99)
	assert.Equal(t, 10, ref.Value(), "second OrInsert must keep the first value")
	ref.Release()
}

func TestEntryAndModifyThenOrInsert(t *testing.T) {
	m := New[int, int]()

	m.Entry(5).OrInsert(10).Release()
	m.Entry(5).AndModify(func(v *int) { *v++ }).OrInsert(0).Release()

	ref, found := m.Get(5)
	require.True(t, found)
	assert.Equal(t, 11, ref.Value())
	ref.Release()
}

func TestEntryAndModifyOnVacantIsNoop(t *testing.T) {
	m := New[int, int]()
	m.Entry(7).AndModify(func(v *int) { *v = 100 }).OrInsert(1).Release()

	ref, found := m.Get(7)
	require.True(t, found)
	assert.Equal(t, 1, ref.Value())
	ref.Release()
}

func TestEntryOrInsertWithLazy(t *testing.T) {
	m := New[int, int]()
	m.Insert(1, 10)

	called := false
	ref := m.Entry(1).OrInsertWith(func() int { called = true; return 99 })
	ref.Release()
	assert.False(t, called, "constructor must not run for an occupied slot")

	ref = m.Entry(2).OrInsertWith(func() int { called = true; return 20 })
	assert.Equal(t, 20, ref.Value())
	ref.Release()
	assert.True(t, called)
}

func TestEntryOrDefault(t *testing.T) {
	m := New[string, int]()
	ref := m.Entry("z").OrDefault()
	assert.Equal(t, 0, ref.Value())
	ref.Release()
	assert.True(t, m.ContainsKey("z"))
}

func TestEntryOrTryInsertWith(t *testing.T) {
	m := New[string, int]()
	boom := errors.New("constructor failed")

	_, err := m.Entry("k").OrTryInsertWith(func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, m.ContainsKey("k"), "failed insert must leave the slot vacant")

	// The lock must have been released on failure.
	ref, err := m.Entry("k").OrTryInsertWith(func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, ref.Value())
	ref.Release()

	// Occupied slot never runs the constructor.
	ref, err = m.Entry("k").OrTryInsertWith(func() (int, error) { return 0, boom })
	require.NoError(t, err)
	assert.Equal(t, 3, ref.Value())
	ref.Release()
}

func TestEntryInsertUnconditionally(t *testing.T) {
	m := New[string, int]()
	m.Insert("k", 1)

	ref := m.Entry("k").Insert(2)
	assert.Equal(t, 2, ref.Value())
	ref.Release()

	occ := m.Entry("k").InsertEntry(3)
	assert.Equal(t, 3, occ.Value())
	occ.Release()

	got, found := m.Get("k")
	require.True(t, found)
	assert.Equal(t, 3, got.Value())
	got.Release()
}

func TestOccupiedEntry(t *testing.T) {
	m := New[string, int]()
	m.Insert("k", 1)

	e := m.Entry("k")
	occ, ok := e.Occupied()
	require.True(t, ok)
	assert.Equal(t, "k", occ.Key())
	assert.Equal(t, 1, occ.Value())

	prev := occ.ReplaceValue(2)
	assert.Equal(t, 1, prev)
	assert.Equal(t, 2, occ.Value())

	*occ.ValuePtr() = 5

	ref := occ.IntoRef()
	assert.Equal(t, 5, ref.Value())
	ref.Release()
}

func TestOccupiedEntryRemove(t *testing.T) {
	m := New[string, int]()
	m.Insert("k", 9)

	occ, ok := m.Entry("k").Occupied()
	require.True(t, ok)
	k, v := occ.RemoveEntry()
	assert.Equal(t, "k", k)
	assert.Equal(t, 9, v)
	assert.False(t, m.ContainsKey("k"))
	assert.Equal(t, 0, m.Len())
}

func TestVacantEntry(t *testing.T) {
	m := New[string, int]()

	e := m.Entry("v")
	vac, ok := e.Vacant()
	require.True(t, ok)
	assert.Equal(t, "v", vac.Key())

	ref := vac.Insert(1)
	assert.Equal(t, 1, ref.Value())
	ref.Release()
	assert.True(t, m.ContainsKey("v"))

	e = m.Entry("v")
	_, ok = e.Vacant()
	assert.False(t, ok)
	e.Release()
}

func TestVacantEntryIntoKey(t *testing.T) {
	m := New[string, int]()
	vac, ok := m.Entry("w").Vacant()
	require.True(t, ok)
	assert.Equal(t, "w", vac.IntoKey())
	assert.False(t, m.ContainsKey("w"))

	// IntoKey released the write lock.
	m.Insert("w", 1)
	assert.True(t, m.ContainsKey("w"))
}

func TestEntryReleaseWithoutInsert(t *testing.T) {
	m := New[string, int]()
	e := m.Entry("k")
	assert.False(t, e.IsOccupied())
	e.Release()
	assert.False(t, m.ContainsKey("k"))
	assert.Panics(t, func() { e.Release() })
}

func TestEntryHashMatchesMapHash(t *testing.T) {
	m := New[string, int]()
	e := m.Entry("k")
	assert.Equal(t, m.Hash("k"), e.Hash())
	e.Release()
}
