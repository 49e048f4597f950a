package shardmap

import (
	"math/rand"
	"strconv"
	"testing"
)

const benchKeyspace = 100_000

func newSeededMap(b *testing.B) *Map[string, int] {
	b.Helper()
	m := NewWithCapacity[string, int](benchKeyspace)
	for i := 0; i < benchKeyspace; i++ {
		m.Insert(strconv.Itoa(i), i)
	}
	return m
}

// BenchmarkGet1000TimesPerIter benchmarks parallel reads, 1000 Get calls
// with different keys per iteration.
func BenchmarkGet1000TimesPerIter(b *testing.B) {
	m := newSeededMap(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(42))
		for pb.Next() {
			for i := 0; i < 1000; i++ {
				if ref, ok := m.Get(strconv.Itoa(rng.Intn(benchKeyspace))); ok {
					_ = ref.Value()
					ref.Release()
				}
			}
		}
	})
}

// BenchmarkInsert1000TimesPerIter benchmarks parallel writes over a
// shared keyspace.
func BenchmarkInsert1000TimesPerIter(b *testing.B) {
	m := NewWithCapacity[string, int](benchKeyspace)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(43))
		for pb.Next() {
			for i := 0; i < 1000; i++ {
				k := rng.Intn(benchKeyspace)
				m.Insert(strconv.Itoa(k), k)
			}
		}
	})
}

// BenchmarkMixed1000TimesPerIter benchmarks the 90/5/5 read/insert/remove
// mix the map is tuned for.
func BenchmarkMixed1000TimesPerIter(b *testing.B) {
	m := newSeededMap(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(44))
		for pb.Next() {
			for i := 0; i < 1000; i++ {
				k := strconv.Itoa(rng.Intn(benchKeyspace))
				switch rng.Intn(20) {
				case 0:
					m.Insert(k, i)
				case 1:
					m.Remove(k)
				default:
					if ref, ok := m.Get(k); ok {
						_ = ref.Value()
						ref.Release()
					}
				}
			}
		}
	})
}

// BenchmarkEntryOrInsert benchmarks the write-locked entry path.
func BenchmarkEntryOrInsert(b *testing.B) {
	m := NewWithCapacity[string, int](benchKeyspace)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(45))
		for pb.Next() {
			k := strconv.Itoa(rng.Intn(benchKeyspace))
			m.Entry(k).OrInsert(1).Release()
		}
	})
}

// BenchmarkIter benchmarks a full read pass.
func BenchmarkIter(b *testing.B) {
	m := newSeededMap(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := m.Iter()
		for {
			ref, ok := it.Next()
			if !ok {
				break
			}
			_ = ref.Value()
			ref.Release()
		}
	}
}
