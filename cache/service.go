package cache

import (
	"context"
	"errors"
)

// ErrInvalidResultType is returned by GetOrFetch when the cached value does not
// match the type requested by the caller. This happens when two queries with
// different result types share a key.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// KeySerializer builds a cache key from a namespace + arbitrary key parts.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(namespace string, parts ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through caching operations the query hooks rely on.
// Implementations must deduplicate concurrent GetOrFetch calls for the same key so
// that only one fetch is in flight per key.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}

// PrefixOf returns the invalidation prefix matching every key serialized with
// the given namespace and leading parts.
func PrefixOf(serializer KeySerializer, namespace string, parts ...any) string {
	return serializer.SerializeKey(namespace, parts...) + KeySeparator
}
