// Package storage normalizes access to the key/value store that backs read
// telemetry.
//
// Three adapters ship with the package: MemoryStorage (process local),
// FileStorage (a JSON document on any afero filesystem) and RedisStorage.
// Resolve picks one at container construction time: an explicitly supplied
// adapter wins, then the first persistent candidate that opens cleanly, then
// an in-memory fallback. Unavailable persistent storage is never reported to
// callers; the fallback keeps statistics working for the life of the process.
package storage

import (
	"context"
	"sort"
)

// Storage is a string key/value store with index-based key enumeration.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Len returns the number of stored keys.
	Len(ctx context.Context) (int, error)
	// Key returns the key at index in a stable order, false when out of range.
	Key(ctx context.Context, index int) (string, bool, error)
}

// Opener constructs a persistent Storage, failing when it is not accessible.
type Opener func() (Storage, error)

// Resolve returns explicit when non-nil, otherwise the first candidate that
// opens without error, otherwise a new MemoryStorage.
func Resolve(explicit Storage, candidates ...Opener) Storage {
	if explicit != nil {
		return explicit
	}
	for _, open := range candidates {
		if open == nil {
			continue
		}
		if s, err := open(); err == nil && s != nil {
			return s
		}
	}
	return NewMemoryStorage()
}

func keyAt(keys []string, index int) (string, bool) {
	if index < 0 || index >= len(keys) {
		return "", false
	}
	sort.Strings(keys)
	return keys[index], true
}
