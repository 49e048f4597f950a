package main

import (
	"context"
	"flag"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/shardmap/pkg/mock"
	"github.com/Borislavv/shardmap/pkg/rate"
	"github.com/Borislavv/shardmap/pkg/shardmap"
	"github.com/Borislavv/shardmap/pkg/utils"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

var (
	workers  = flag.Int("workers", runtime.NumCPU(), "number of concurrent workers")
	ops      = flag.Int("ops", 1_000_000, "operations per worker")
	keyspace = flag.Int("keyspace", 100_000, "number of distinct keys")
	rps      = flag.Int("rps", 0, "rate limit in ops/sec across all workers (0 = unlimited)")
	seed     = flag.Uint64("seed", 0, "hash seed (0 = per-process random layout)")
	readPct  = flag.Int("read-pct", 90, "percentage of reads in the mixed workload")
)

// counters are shared across workers and reported by the progress logger.
type counters struct {
	reads   atomic.Int64
	writes  atomic.Int64
	removes atomic.Int64
	hits    atomic.Int64
}

func main() {
	flag.Parse()

	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[stress] setting up GOMAXPROCS value failed")
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hasher shardmap.Hasher[string]
	if *seed != 0 {
		hasher = shardmap.XXH3Hasher[string]{Seed: *seed}
	} else {
		hasher = shardmap.NewDefaultHasher[string]()
	}
	store := shardmap.NewWithCapacityAndHasherAndShardCount[string, []byte](
		*keyspace, hasher, shardmap.DefaultShardCount(),
	)

	log.Info().Msgf(
		"[stress] starting: workers=%d ops=%d keyspace=%d shards=%d rps=%d read-pct=%d",
		*workers, *ops, *keyspace, store.ShardCount(), *rps, *readPct,
	)

	entries := mock.GenerateEntries(rand.New(rand.NewSource(42)), *keyspace)

	var limiter rate.Limiter
	if *rps > 0 {
		limiter = rate.NewLimiter(ctx, *rps, *rps)
	}

	cnt := &counters{}
	go runProgressLogger(ctx, cnt)

	start := time.Now()
	wg := &sync.WaitGroup{}
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			runWorker(ctx, store, entries, limiter, cnt, worker)
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := cnt.reads.Load() + cnt.writes.Load() + cnt.removes.Load()
	log.Info().Msgf(
		"[stress] done: ops=%d elapsed=%s rate=%.0f ops/sec len=%d",
		total, elapsed, float64(total)/elapsed.Seconds(), store.Len(),
	)
	logShardSkew(store)

	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)
	log.Info().Msgf("[stress] heap in use: %s", utils.FmtMemory(uintptr(ms.HeapInuse)))
}

// runWorker executes the mixed read/insert/remove loop for one goroutine.
func runWorker(
	ctx context.Context,
	store *shardmap.Map[string, []byte],
	entries []mock.Entry,
	limiter rate.Limiter,
	cnt *counters,
	worker int,
) {
	rnd := rand.New(rand.NewSource(int64(worker) + 1))
	writeCut := *readPct
	removeCut := *readPct + (100-*readPct)/2

	for i := 0; i < *ops; i++ {
		if limiter != nil {
			if _, ok := limiter.Take(ctx); !ok {
				return
			}
		}

		e := entries[rnd.Intn(len(entries))]
		switch p := rnd.Intn(100); {
		case p < writeCut:
			if ref, ok := store.Get(e.Key); ok {
				_ = ref.Value()
				ref.Release()
				cnt.hits.Add(1)
			}
			cnt.reads.Add(1)
		case p < removeCut:
			store.Insert(e.Key, e.Value)
			cnt.writes.Add(1)
		default:
			store.Remove(e.Key)
			cnt.removes.Add(1)
		}
	}
}

// runProgressLogger reports throughput once per second until the context dies.
func runProgressLogger(ctx context.Context, cnt *counters) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	var prev int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			total := cnt.reads.Load() + cnt.writes.Load() + cnt.removes.Load()
			log.Info().Msgf(
				"[stress] progress: total=%d rate=%d ops/sec reads=%d writes=%d removes=%d hits=%d",
				total, total-prev, cnt.reads.Load(), cnt.writes.Load(), cnt.removes.Load(), cnt.hits.Load(),
			)
			prev = total
		}
	}
}

// logShardSkew prints the min/max shard fill so uneven hashing is visible.
func logShardSkew(store *shardmap.Map[string, []byte]) {
	min, max := -1, 0
	for _, s := range store.Shards() {
		s.RLock()
		n := s.Len()
		s.RUnlock()
		if min == -1 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	log.Info().Msgf("[stress] shard fill: min=%d max=%d shards=%d", min, max, store.ShardCount())
}
