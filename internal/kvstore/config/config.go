package config

import (
	"time"

	serverconfig "github.com/Borislavv/shardmap/pkg/server/config"
)

// Config aggregates the HTTP server settings and the store settings, both
// populated from environment variables.
type Config struct {
	serverconfig.HttpServer `mapstructure:",squash"`
	Store                   `mapstructure:",squash"`
}

type Store struct {
	// AppEnv is the application environment (dev, test, prod).
	AppEnv string `envconfig:"APP_ENV" mapstructure:"APP_ENV" default:"dev"`
	// AppDebug enables the periodic request-stats logger.
	AppDebug bool `envconfig:"APP_DEBUG" mapstructure:"APP_DEBUG" default:"false"`
	// StoreShardCount is the number of map shards (power of two).
	// Zero derives the count from the available CPUs.
	StoreShardCount int `envconfig:"STORE_SHARD_COUNT" mapstructure:"STORE_SHARD_COUNT" default:"0"`
	// StoreInitCapacity is the initial capacity distributed across shards.
	StoreInitCapacity int `envconfig:"STORE_INIT_CAPACITY" mapstructure:"STORE_INIT_CAPACITY" default:"1024"`
	// StoreHashSeed switches the map to a deterministically seeded xxh3
	// hasher. Zero keeps the default randomly seeded hasher.
	StoreHashSeed uint64 `envconfig:"STORE_HASH_SEED" mapstructure:"STORE_HASH_SEED" default:"0"`
	// LivenessProbeTimeout is how long a component may stay silent before
	// the probe reports the application as dead.
	LivenessProbeTimeout time.Duration `envconfig:"LIVENESS_PROBE_FAILED_TIMEOUT" mapstructure:"LIVENESS_PROBE_FAILED_TIMEOUT" default:"10s"`
}

func (c *Config) IsDebugOn() bool {
	return c.AppDebug
}
