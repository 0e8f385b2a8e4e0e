// Package hooks provides cached, instrumented reads and writes over a
// docstore.Store.
//
// Reads come in two shapes. UseCollection builds a CollectionQuery for a
// collection and a query.Descriptor; UseDocument builds a DocumentQuery for
// one document id. Both resolve their cache preference through cachemode,
// cache results in the container's CacheService under deterministic keys,
// and keep a QueryState describing the last outcome.
//
// Writes are Mutations. UseAddDocument, UseUpdateDocument and
// UseDeleteDocument perform the store mutation, invalidate the affected
// cached reads and, when enabled, append an audit entry to the collection's
// log collection. Audit failures are logged and never fail the mutation.
//
// Every hook takes a *di.Container. A nil container fails with
// di.ErrNoConfig before anything runs.
package hooks
