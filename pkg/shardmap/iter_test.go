package shardmap

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterVisitsEveryEntryExactlyOnce(t *testing.T) {
	m := NewWithShardCount[int, int](8)
	const n = 1000
	for i := 0; i < n; i++ {
		m.Insert(i, i+1)
	}

	seen := make(map[int]int, n)
	it := m.Iter()
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		_, dup := seen[ref.Key()]
		require.False(t, dup, "key %d yielded twice", ref.Key())
		seen[ref.Key()] = ref.Value()
		ref.Release()
	}

	require.Len(t, seen, n)
	for k, v := range seen {
		assert.Equal(t, k+1, v)
	}
}

func TestIterKeptGuardsOutliveShardAdvance(t *testing.T) {
	m := NewWithShardCount[int, int](8)
	for i := 0; i < 200; i++ {
		m.Insert(i, i)
	}

	var kept []*RefMulti[int, int]
	it := m.Iter()
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		kept = append(kept, ref)
	}

	// The iterator is exhausted, yet every kept guard still owns a share
	// of its shard's read lock and must read valid data.
	require.Len(t, kept, 200)
	for _, ref := range kept {
		assert.Equal(t, ref.Key(), ref.Value())
		ref.Release()
	}

	// All locks must be free again.
	m.Insert(1000, 1000)
	assert.Equal(t, 201, m.Len())
}

func TestIterCloseEarlyReleasesLock(t *testing.T) {
	m := NewWithShardCount[int, int](4)
	for i := 0; i < 100; i++ {
		m.Insert(i, i)
	}

	it := m.Iter()
	ref, ok := it.Next()
	require.True(t, ok)
	ref.Release()
	it.Close()

	// A full write pass must not block on anything the iterator held.
	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestIterMutMutatesInPlace(t *testing.T) {
	m := NewWithShardCount[int, int](8)
	for i := 0; i < 100; i++ {
		m.Insert(i, i)
	}

	it := m.IterMut()
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		ref.Set(ref.Value() * 10)
		ref.Release()
	}

	for i := 0; i < 100; i++ {
		ref, found := m.Get(i)
		require.True(t, found)
		assert.Equal(t, i*10, ref.Value())
		ref.Release()
	}
}

func TestIterOnEmptyMap(t *testing.T) {
	m := New[string, int]()
	it := m.Iter()
	_, ok := it.Next()
	assert.False(t, ok)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestRangeStopsEarly(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		m.Insert(i, i)
	}

	visited := 0
	m.Range(func(int, int) bool {
		visited++
		return visited < 10
	})
	assert.Equal(t, 10, visited)

	// Early stop must leave no lock held.
	m.Insert(1000, 1000)
}

func TestKeys(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 50; i++ {
		m.Insert(i, i)
	}

	keys := m.Keys()
	require.Len(t, keys, 50)
	sort.Ints(keys)
	for i, k := range keys {
		assert.Equal(t, i, k)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := New[string, int]()
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Insert("c", 3)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	out := NewWithShardCount[string, int](4)
	require.NoError(t, json.Unmarshal(data, out))

	require.Equal(t, 3, out.Len())
	for _, k := range []string{"a", "b", "c"} {
		want, found := m.Get(k)
		require.True(t, found)
		got, found := out.Get(k)
		require.True(t, found)
		assert.Equal(t, want.Value(), got.Value())
		want.Release()
		got.Release()
	}
}

func TestJSONUnmarshalInvalidPayload(t *testing.T) {
	m := New[string, int]()
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), m))
}
