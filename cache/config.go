package cache

import (
	"time"

	"github.com/goliatone/go-docquery/internal/cacheinfra"
)

// Config sizes the query cache shared by every hook of a container.
//
// TTL is the retention window: an unused query result is garbage collected
// once it is older than TTL. Whether a retained result is still fresh enough
// to serve is decided per query by its stale time, so a short stale time
// with a long TTL keeps results around only for in-flight deduplication and
// invalidation bookkeeping.
type Config struct {
	// Capacity bounds the number of cached query results across all shards.
	Capacity  int
	NumShards int
	TTL       time.Duration
	// EvictionPercentage of a full shard is dropped to make room.
	EvictionPercentage int
	// EarlyRefresh re-runs hot queries in the background before they expire.
	// Nil disables it.
	EarlyRefresh *EarlyRefreshConfig
	// MissingRecordStorage caches "not found" document reads as well.
	MissingRecordStorage bool
	EvictionInterval     time.Duration
}

// EarlyRefreshConfig sets the background refresh windows of hot queries.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the retention and sizing used when a container is
// built without WithCacheConfig.
func DefaultConfig() Config {
	return fromAdapter(cacheinfra.DefaultConfig())
}

// WithRetention returns a copy of c keeping unused results for ttl. Early
// refresh windows longer than ttl are clamped so a refresh never outlives
// the entry it refreshes.
func (c Config) WithRetention(ttl time.Duration) Config {
	c.TTL = ttl
	if c.EarlyRefresh != nil && ttl > 0 {
		early := *c.EarlyRefresh
		early.MaxAsyncRefreshTime = min(early.MaxAsyncRefreshTime, ttl)
		early.MinAsyncRefreshTime = min(early.MinAsyncRefreshTime, early.MaxAsyncRefreshTime)
		early.SyncRefreshTime = min(early.SyncRefreshTime, ttl)
		c.EarlyRefresh = &early
	}
	return c
}

// WithoutEarlyRefresh returns a copy of c that only fetches on demand.
func (c Config) WithoutEarlyRefresh() Config {
	c.EarlyRefresh = nil
	return c
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.adapter().Validate()
}

// NewCacheService builds the sturdyc-backed query cache for cfg.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.NewSturdycService(cfg.adapter())
}

func (c Config) adapter() cacheinfra.Config {
	out := cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
	if e := c.EarlyRefresh; e != nil {
		out.EarlyRefresh = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: e.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: e.MaxAsyncRefreshTime,
			SyncRefreshTime:     e.SyncRefreshTime,
			RetryBaseDelay:      e.RetryBaseDelay,
		}
	}
	return out
}

func fromAdapter(cfg cacheinfra.Config) Config {
	out := Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
	if e := cfg.EarlyRefresh; e != nil {
		out.EarlyRefresh = &EarlyRefreshConfig{
			MinAsyncRefreshTime: e.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: e.MaxAsyncRefreshTime,
			SyncRefreshTime:     e.SyncRefreshTime,
			RetryBaseDelay:      e.RetryBaseDelay,
		}
	}
	return out
}
