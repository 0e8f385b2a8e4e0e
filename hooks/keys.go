package hooks

import (
	"context"

	"github.com/goliatone/go-docquery/cache"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/goliatone/go-docquery/query"
)

// CollectionKey is the cache key of a collection read. Structurally equal
// descriptors share a key; a nil descriptor equals an empty one.
func CollectionKey(c *di.Container, collection string, desc *query.Descriptor) string {
	if desc == nil {
		desc = &query.Descriptor{}
	}
	return c.KeySerializer().SerializeKey(c.KeyPrefix(), OpCollection, collection, desc)
}

// DocumentKey is the cache key of a single document read.
func DocumentKey(c *di.Container, collection, id string) string {
	return c.KeySerializer().SerializeKey(c.KeyPrefix(), OpDocument, collection, id)
}

// CollectionPrefix matches every collection read key of collection and no
// key of any other collection.
func CollectionPrefix(c *di.Container, collection string) string {
	return cache.PrefixOf(c.KeySerializer(), c.KeyPrefix(), OpCollection, collection)
}

// InvalidateCollection drops every cached read of collection.
func InvalidateCollection(ctx context.Context, c *di.Container, collection string) error {
	if err := di.Ensure(c); err != nil {
		return err
	}
	return c.CacheService().DeleteByPrefix(ctx, CollectionPrefix(c, collection))
}

// InvalidateDocument drops the cached read of one document.
func InvalidateDocument(ctx context.Context, c *di.Container, collection, id string) error {
	if err := di.Ensure(c); err != nil {
		return err
	}
	return c.CacheService().Delete(ctx, DocumentKey(c, collection, id))
}
