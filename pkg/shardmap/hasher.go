package shardmap

import (
	"hash/maphash"

	"github.com/zeebo/xxh3"
)

// Hasher builds the 64-bit hash of a key. A map instance hashes every key
// with the same hasher for its whole lifetime; the hasher must therefore
// be deterministic once constructed.
type Hasher[K comparable] interface {
	Hash(key K) uint64
}

type defaultHasher[K comparable] struct {
	seed maphash.Seed
}

// NewDefaultHasher returns the randomly seeded general-purpose hasher used
// by New. Two maps built with it hash the same key differently, which
// keeps attacker-chosen keys from clustering in a single shard.
func NewDefaultHasher[K comparable]() Hasher[K] {
	return defaultHasher[K]{seed: maphash.MakeSeed()}
}

func (h defaultHasher[K]) Hash(key K) uint64 {
	return maphash.Comparable(h.seed, key)
}

// XXH3Hasher hashes string-like keys with xxh3. A fixed seed makes the
// shard layout deterministic, which is useful for tests and for tooling
// that inspects shard distribution.
type XXH3Hasher[K ~string] struct {
	Seed uint64
}

func (h XXH3Hasher[K]) Hash(key K) uint64 {
	return xxh3.HashStringSeed(string(key), h.Seed)
}
