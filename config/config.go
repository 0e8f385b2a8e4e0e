// Package config loads docquery settings from an optional YAML file and
// DOCQUERY_* environment variables, and maps them onto container options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-docquery/audit"
	"github.com/goliatone/go-docquery/cache"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/goliatone/go-docquery/storage"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const DefaultEnvPrefix = "DOCQUERY"

// Storage kinds accepted in storage.kind.
const (
	StorageAuto   = "auto"
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

type CacheSettings struct {
	Capacity           int           `mapstructure:"capacity" yaml:"capacity"`
	NumShards          int           `mapstructure:"num_shards" yaml:"num_shards"`
	TTL                time.Duration `mapstructure:"ttl" yaml:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage" yaml:"eviction_percentage"`
	EarlyRefresh       bool          `mapstructure:"early_refresh" yaml:"early_refresh"`
}

type QuerySettings struct {
	StaleTime  time.Duration `mapstructure:"stale_time" yaml:"stale_time"`
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Retry      int           `mapstructure:"retry" yaml:"retry"`
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

type AuditSettings struct {
	Enabled             bool `mapstructure:"enabled" yaml:"enabled"`
	IncludePreviousData bool `mapstructure:"include_previous_data" yaml:"include_previous_data"`
	// LogSuffix replaces "_log" when deriving log collection names.
	LogSuffix string `mapstructure:"log_suffix" yaml:"log_suffix"`
}

type StorageSettings struct {
	Kind           string `mapstructure:"kind" yaml:"kind"`
	Path           string `mapstructure:"path" yaml:"path"`
	RedisAddr      string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisNamespace string `mapstructure:"redis_namespace" yaml:"redis_namespace"`
}

type DatabaseSettings struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// Settings is the full configuration surface of a docquery host.
type Settings struct {
	KeyPrefix string           `mapstructure:"key_prefix" yaml:"key_prefix"`
	Debug     bool             `mapstructure:"debug" yaml:"debug"`
	Cache     CacheSettings    `mapstructure:"cache" yaml:"cache"`
	Query     QuerySettings    `mapstructure:"query" yaml:"query"`
	Audit     AuditSettings    `mapstructure:"audit" yaml:"audit"`
	Storage   StorageSettings  `mapstructure:"storage" yaml:"storage"`
	Database  DatabaseSettings `mapstructure:"database" yaml:"database"`
}

// Default returns the settings used when neither a file nor the environment
// set a value.
func Default() Settings {
	cacheCfg := cache.DefaultConfig()
	query := di.DefaultQueryDefaults()
	return Settings{
		KeyPrefix: di.DefaultKeyPrefix,
		Cache: CacheSettings{
			Capacity:           cacheCfg.Capacity,
			NumShards:          cacheCfg.NumShards,
			TTL:                cacheCfg.TTL,
			EvictionPercentage: cacheCfg.EvictionPercentage,
			EarlyRefresh:       cacheCfg.EarlyRefresh != nil,
		},
		Query: QuerySettings{
			StaleTime:  query.StaleTime,
			Enabled:    query.Enabled,
			Retry:      query.Retry,
			RetryDelay: query.RetryDelay,
		},
		Audit:    AuditSettings{LogSuffix: audit.LogSuffix},
		Storage:  StorageSettings{Kind: StorageAuto, RedisNamespace: storage.DefaultRedisNamespace},
		Database: DatabaseSettings{Driver: "sqlite3", DSN: "docquery.db"},
	}
}

// Load reads path (skipped when empty or missing) and DOCQUERY_* overrides
// such as DOCQUERY_QUERY_RETRY or DOCQUERY_STORAGE_KIND.
func Load(path string) (Settings, error) {
	v := viper.NewWithOptions(
		viper.KeyDelimiter("."),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")),
	)
	v.SetEnvPrefix(DefaultEnvPrefix)
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	decodeHooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(decodeHooks)); err != nil {
		return Settings{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config: invalid settings: %w", err)
	}
	return s, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Settings) {
	defaults := map[string]any{
		"key_prefix":                  d.KeyPrefix,
		"debug":                       d.Debug,
		"cache.capacity":              d.Cache.Capacity,
		"cache.num_shards":            d.Cache.NumShards,
		"cache.ttl":                   d.Cache.TTL,
		"cache.eviction_percentage":   d.Cache.EvictionPercentage,
		"cache.early_refresh":         d.Cache.EarlyRefresh,
		"query.stale_time":            d.Query.StaleTime,
		"query.enabled":               d.Query.Enabled,
		"query.retry":                 d.Query.Retry,
		"query.retry_delay":           d.Query.RetryDelay,
		"audit.enabled":               d.Audit.Enabled,
		"audit.include_previous_data": d.Audit.IncludePreviousData,
		"audit.log_suffix":            d.Audit.LogSuffix,
		"storage.kind":                d.Storage.Kind,
		"storage.path":                d.Storage.Path,
		"storage.redis_addr":          d.Storage.RedisAddr,
		"storage.redis_namespace":     d.Storage.RedisNamespace,
		"database.driver":             d.Database.Driver,
		"database.dsn":                d.Database.DSN,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.KeyPrefix, validation.Required),
		validation.Field(&s.Query),
		validation.Field(&s.Storage),
		validation.Field(&s.Database),
	)
}

func (q QuerySettings) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.StaleTime, validation.Min(time.Duration(0))),
		validation.Field(&q.Retry, validation.Min(0)),
		validation.Field(&q.RetryDelay, validation.Min(time.Duration(0))),
	)
}

func (st StorageSettings) Validate() error {
	return validation.ValidateStruct(&st,
		validation.Field(&st.Kind, validation.Required,
			validation.In(StorageAuto, StorageMemory, StorageFile, StorageRedis)),
		validation.Field(&st.Path, validation.When(st.Kind == StorageFile, validation.Required)),
		validation.Field(&st.RedisAddr, validation.When(st.Kind == StorageRedis, validation.Required)),
	)
}

func (d DatabaseSettings) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required),
		validation.Field(&d.DSN, validation.Required),
	)
}

// CacheConfig converts the cache section. Early refresh uses the library
// default windows when enabled.
func (s Settings) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig().WithRetention(s.Cache.TTL)
	cfg.Capacity = s.Cache.Capacity
	cfg.NumShards = s.Cache.NumShards
	cfg.EvictionPercentage = s.Cache.EvictionPercentage
	if !s.Cache.EarlyRefresh {
		cfg = cfg.WithoutEarlyRefresh()
	}
	return cfg
}

func (s Settings) QueryDefaults() di.QueryDefaults {
	return di.QueryDefaults{
		StaleTime:  s.Query.StaleTime,
		Enabled:    s.Query.Enabled,
		Retry:      s.Query.Retry,
		RetryDelay: s.Query.RetryDelay,
	}
}

func (s Settings) AuditConfig() audit.Config {
	cfg := audit.Config{
		Enabled:             s.Audit.Enabled,
		IncludePreviousData: s.Audit.IncludePreviousData,
	}
	if suffix := s.Audit.LogSuffix; suffix != "" && suffix != audit.LogSuffix {
		cfg.ResolveLogCollection = func(collection string) string { return collection + suffix }
	}
	return cfg
}

// StorageOpeners returns the candidates for statistics storage. The kind
// "auto" keeps the container default.
func (s Settings) StorageOpeners(fs afero.Fs) []storage.Opener {
	switch s.Storage.Kind {
	case StorageMemory:
		return []storage.Opener{func() (storage.Storage, error) { return storage.NewMemoryStorage(), nil }}
	case StorageFile:
		return []storage.Opener{storage.FileOpener(fs, s.Storage.Path)}
	case StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: s.Storage.RedisAddr})
		return []storage.Opener{storage.RedisOpener(client, s.Storage.RedisNamespace)}
	}
	return []storage.Opener{storage.DefaultFileOpener()}
}

// Options maps the settings onto container options. Logger, error handler
// and actor resolver are left to the host.
func (s Settings) Options(fs afero.Fs) []di.Option {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return []di.Option{
		di.WithKeyPrefix(s.KeyPrefix),
		di.WithCacheConfig(s.CacheConfig()),
		di.WithQueryDefaults(s.QueryDefaults()),
		di.WithAudit(s.AuditConfig()),
		di.WithStorageOpeners(s.StorageOpeners(fs)...),
	}
}
