package kvstore

import (
	"context"

	"github.com/Borislavv/shardmap/internal/kvstore/config"
	"github.com/Borislavv/shardmap/internal/kvstore/server"
	"github.com/Borislavv/shardmap/pkg/liveness"
	"github.com/Borislavv/shardmap/pkg/shardmap"
	"github.com/Borislavv/shardmap/pkg/shutdown"
	"github.com/rs/zerolog/log"
)

// App defines the KV store application lifecycle interface.
type App interface {
	Start(gc shutdown.Gracefuller)
}

// KVStore encapsulates the application state: the sharded map, config,
// HTTP server and liveness probe.
type KVStore struct {
	cfg    *config.Config     // Application configuration
	ctx    context.Context    // Application context for cancellation and shutdown
	cancel context.CancelFunc // Cancel function for ctx
	probe  liveness.Prober    // Liveness probe integration
	server server.Http        // HTTP server (implements business logic and API)
	store  *shardmap.Map[string, []byte]
}

// NewApp builds the KV store app, wiring together the sharded map and server.
func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*KVStore, error) {
	ctx, cancel := context.WithCancel(ctx)

	// Set up the sharded map used as the high-concurrency store.
	store := buildStore(cfg)

	// Compose the HTTP server (API, metrics and so on)
	srv, err := server.New(ctx, cfg, store, probe)
	if err != nil {
		cancel()
		return nil, err
	}

	return &KVStore{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		probe:  probe,
		server: srv,
		store:  store,
	}, nil
}

// buildStore derives the map layout from the config: explicit shard count
// and capacity when given, CPU-derived defaults otherwise, and a seeded
// xxh3 hasher when a deterministic layout was requested.
func buildStore(cfg *config.Config) *shardmap.Map[string, []byte] {
	shardCount := cfg.StoreShardCount
	if shardCount == 0 {
		shardCount = shardmap.DefaultShardCount()
	}

	var hasher shardmap.Hasher[string]
	if cfg.StoreHashSeed != 0 {
		hasher = shardmap.XXH3Hasher[string]{Seed: cfg.StoreHashSeed}
	} else {
		hasher = shardmap.NewDefaultHasher[string]()
	}

	return shardmap.NewWithCapacityAndHasherAndShardCount[string, []byte](cfg.StoreInitCapacity, hasher, shardCount)
}

// Start runs the server and liveness probe, and handles graceful shutdown.
// The Gracefuller interface is expected to call Done() when shutdown is complete.
func (a *KVStore) Start(gc shutdown.Gracefuller) {
	defer func() {
		a.stop()
		gc.Done()
	}()

	log.Info().Msg("starting kvstore app")

	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		a.probe.Watch(a) // Call first due to it does not block the green-thread
		a.server.Start() // Blocks the green-thread
	}()

	log.Info().Msgf("kvstore app has been started (shards: %d)", a.store.ShardCount())

	<-waitCh // Wait until the server exits
}

// stop cancels the main application context and logs shutdown.
func (a *KVStore) stop() {
	log.Info().Msg("stopping kvstore app")
	a.cancel()
	log.Info().Msg("kvstore app has been stopped")
}

// IsAlive is called by liveness probes to check app health.
// Returns false if the HTTP server is not alive.
func (a *KVStore) IsAlive(_ context.Context) bool {
	if !a.server.IsAlive() {
		log.Info().Msg("http server has gone away")
		return false
	}
	return true
}
