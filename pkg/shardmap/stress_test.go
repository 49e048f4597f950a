package shardmap

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Eight goroutines own disjoint key ranges, so every goroutine's local
// reference map must match the shared map exactly once all of them are
// done. Cross-range interference would show up as a mismatch.
func TestConcurrentStressMatchesReference(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in short mode")
	}

	const (
		goroutines = 8
		opsEach    = 100_000
		keysEach   = 128 // 8 × 128 = keyspace 0..1024
	)

	m := New[int, int]()
	refs := make([]map[int]int, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(g)))
			local := make(map[int]int, keysEach)
			base := g * keysEach

			for i := 0; i < opsEach; i++ {
				k := base + rng.Intn(keysEach)
				switch rng.Intn(6) {
				case 0, 1:
					v := rng.Int()
					m.Insert(k, v)
					local[k] = v
				case 2:
					m.Remove(k)
					delete(local, k)
				case 3:
					m.Alter(k, func(_ int, v int) int { return v + 1 })
					if v, ok := local[k]; ok {
						local[k] = v + 1
					}
				case 4:
					if ref, ok := m.Get(k); ok {
						ref.Release()
					}
				default:
					m.ContainsKey(k)
				}
			}
			refs[g] = local
		}(g)
	}
	wg.Wait()

	total := 0
	for g, local := range refs {
		total += len(local)
		base := g * keysEach
		for k := base; k < base+keysEach; k++ {
			want, wantOk := local[k]
			got, gotOk := m.Get(k)
			require.Equal(t, wantOk, gotOk, "key %d presence diverged", k)
			if gotOk {
				require.Equal(t, want, got.Value(), "key %d value diverged", k)
				got.Release()
			}
		}
	}
	require.Equal(t, total, m.Len())
}

// Fully shared keyspace under heavy mixed load. The final state cannot be
// predicted, so the structural invariants are checked instead: no
// duplicate keys, every key in the shard its hash selects, length equal
// to the iterated entry count.
func TestConcurrentMixedOpsKeepInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in short mode")
	}

	const (
		goroutines = 8
		opsEach    = 50_000
		keyspace   = 1024
	)

	m := NewWithShardCount[int, int](16)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(1000 + g)))
			for i := 0; i < opsEach; i++ {
				k := rng.Intn(keyspace)
				switch rng.Intn(7) {
				case 0, 1:
					m.Insert(k, k)
				case 2:
					m.Remove(k)
				case 3:
					m.Entry(k).OrInsert(k).Release()
				case 4:
					m.Entry(k).AndModify(func(v *int) { *v = k }).Release()
				case 5:
					if ref, ok := m.Get(k); ok {
						_ = ref.Value()
						ref.Release()
					}
				default:
					m.ContainsKey(k)
				}
			}
		}(g)
	}
	wg.Wait()

	seen := make(map[int]struct{}, keyspace)
	count := 0
	it := m.Iter()
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		k := ref.Key()
		_, dup := seen[k]
		require.False(t, dup, "key %d stored twice", k)
		seen[k] = struct{}{}
		require.Less(t, k, keyspace, "key %d was never inserted", k)

		idx := m.DetermineShard(m.Hash(k))
		require.Contains(t, m.ShardAt(idx).Items(), k, "key %d strayed from shard %d", k, idx)

		count++
		ref.Release()
	}
	require.Equal(t, count, m.Len())
}

// Readers in different goroutines must share a shard's read lock while a
// downgraded guard is alive.
func TestConcurrentReadersAfterDowngrade(t *testing.T) {
	m := New[int, int]()
	m.Insert(1, 1)

	mut, ok := m.GetMut(1)
	require.True(t, ok)
	mut.Set(2)
	ro := mut.Downgrade()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, ok := m.Get(1)
			if ok {
				ref.Release()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 2, ro.Value())
	ro.Release()
}
