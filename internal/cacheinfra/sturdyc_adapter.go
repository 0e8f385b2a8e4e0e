package cacheinfra

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of query results that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the retention window for cached query results. Entries nobody
	// invalidated are evicted once it elapses. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh refreshes hot entries in the background before they expire.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage lets sturdyc remember keys whose fetch reported
	// sturdyc.ErrNotFound.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: false,
		EvictionInterval:     0,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

type fieldCheck struct {
	field string
	value any
	rules []validation.Rule
}

// Validate checks if the configuration values are valid.
// It reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	positive := "must be greater than 0"
	nonNegative := "must be non-negative"

	checks := []fieldCheck{
		{"Capacity", c.Capacity, []validation.Rule{
			validation.Required.Error(positive), validation.Min(1).Error(positive),
		}},
		{"NumShards", c.NumShards, []validation.Rule{
			validation.Required.Error(positive), validation.Min(1).Error(positive),
		}},
		{"TTL", c.TTL, []validation.Rule{
			validation.Required.Error(positive), validation.Min(time.Duration(1)).Error(positive),
		}},
		{"EvictionPercentage", c.EvictionPercentage, []validation.Rule{
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1).Error("must be between 1 and 100"),
			validation.Max(100).Error("must be between 1 and 100"),
		}},
	}

	if c.EarlyRefresh != nil {
		min := validation.Min(time.Duration(0)).Error(nonNegative)
		checks = append(checks,
			fieldCheck{"EarlyRefresh.MinAsyncRefreshTime", c.EarlyRefresh.MinAsyncRefreshTime, []validation.Rule{min}},
			fieldCheck{"EarlyRefresh.MaxAsyncRefreshTime", c.EarlyRefresh.MaxAsyncRefreshTime, []validation.Rule{min}},
			fieldCheck{"EarlyRefresh.SyncRefreshTime", c.EarlyRefresh.SyncRefreshTime, []validation.Rule{min}},
			fieldCheck{"EarlyRefresh.RetryBaseDelay", c.EarlyRefresh.RetryBaseDelay, []validation.Rule{min}},
		)
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return &ConfigError{Field: check.field, Message: err.Error()}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// sturdycService wraps a sturdyc client providing caching behaviour.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService creates a new sturdyc cache service adapter.
// sturdyc tracks in-flight fetches per key, so concurrent GetOrFetch calls
// for the same key share one fetch.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// validateFetchFn checks that fetchFn has the signature func(context.Context) (T, error).
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}

	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return nil
}

// GetOrFetch implements cache.CacheService.GetOrFetch.
// On a miss it runs fetchFn, stores the value under key and returns it.
// Fetch errors are returned to every waiter and are never cached.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	typedFetchFn := func(ctx context.Context) (any, error) {
		return callFetchFunctionWithReflection(ctx, fetchFn)
	}

	return s.client.GetOrFetch(ctx, key, typedFetchFn)
}

// callFetchFunctionWithReflection calls any func(context.Context) (T, error).
// fetchFn is pre-validated by validateFetchFn.
func callFetchFunctionWithReflection(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if resultValue := results[0]; resultValue.IsValid() && resultValue.CanInterface() {
		result = resultValue.Interface()
	}

	var err error
	if errorValue := results[1]; errorValue.IsValid() && !errorValue.IsNil() {
		err = errorValue.Interface().(error)
	}

	return result, err
}

// Delete implements cache.CacheService.Delete.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix implements cache.CacheService.DeleteByPrefix.
// Removes every cached query result whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys removes multiple entries in one call.
func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Keys returns the currently cached keys in sorted order.
func (s *sturdycService) Keys() []string {
	keys := s.client.ScanKeys()
	sort.Strings(keys)
	return keys
}

// Size returns the number of cached entries.
func (s *sturdycService) Size() int {
	return s.client.Size()
}
