// Package cache provides the async-cache contract used by the query hooks.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: keyed read-through caching with single-key and prefix invalidation
//   - KeySerializer: builds stable, prefix-friendly cache keys from a namespace and key parts
//
// The default CacheService is backed by sturdyc (see NewCacheService), which also
// deduplicates concurrent fetches for the same key: two readers asking for the same
// collection query while a fetch is in flight share the one underlying store read.
//
// # Key Layout
//
// Keys are built from segments joined by KeySeparator:
//
//	dq::collection::users::query{where[age>=18],order[name asc],limit=20}
//	dq::document::users::u1
//
// Every segment is serialized on its own, so the key for a shorter list of parts is a
// prefix of the key for a longer one. PrefixOf exploits this to invalidate every cached
// read of a collection after a write:
//
//	prefix := cache.PrefixOf(serializer, "dq", "collection", "users")
//	_ = service.DeleteByPrefix(ctx, prefix)
//
// The trailing separator in the prefix keeps "users" from matching "users_log".
//
// # Key Serialization Strategy
//
//   - Keyer values: the value's own CacheKey() result
//   - time.Time: RFC3339Nano in UTC
//   - Basic types: direct string representation
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key=value pairs
//   - Structs: exported fields with name:value pairs
//   - Function pointers: %p formatting, stable only within a process
//   - Everything else: JSON fallback
//
// CanonicalValue applies the same rules with strings quoted and scalars tagged by
// type ("Ann Bo" and the list "Ann", "Bo" never meet). Descriptors use it for
// filter values.
//
// Segments longer than MaxSegmentLength are replaced by an xxhash digest so that keys
// stay short enough for external cache backends.
package cache
