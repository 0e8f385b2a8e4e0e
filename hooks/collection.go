package hooks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-docquery/cachemode"
	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/goliatone/go-docquery/query"
	"github.com/goliatone/go-docquery/record"
	"go.opentelemetry.io/otel/attribute"
)

// PageMeta describes one page of a collection read. First and Last are the
// store position markers to pass to query.Descriptor.StartAfter/EndBefore.
type PageMeta struct {
	First *docstore.DocumentSnapshot
	Last  *docstore.DocumentSnapshot
	Empty bool
	Size  int
}

// CollectionResult is the outcome of a collection read. Meta is set only
// when the query was built with ReadOptions.WithMeta.
type CollectionResult struct {
	Records []record.Record
	Meta    *PageMeta
}

type collectionPage struct {
	records []record.Record
	meta    PageMeta
}

type resolved[T any] struct {
	value  T
	source cachemode.Source
}

// CollectionQuery is a cached read of one collection.
type CollectionQuery struct {
	c          *di.Container
	collection string
	desc       *query.Descriptor
	opts       ReadOptions
	settings   di.QueryDefaults
	key        string

	mu    sync.RWMutex
	state QueryState[CollectionResult]
}

// UseCollection builds a collection read. desc may be nil for an unfiltered
// read. Nothing is fetched until Fetch is called.
func UseCollection(c *di.Container, collection string, desc *query.Descriptor, opts ReadOptions) (*CollectionQuery, error) {
	if err := di.Ensure(c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(collection) == "" {
		return nil, ErrInvalidCollection
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("hooks: invalid read options: %w", err)
	}
	if desc == nil {
		desc = &query.Descriptor{}
	}
	if opts.PreferCache == "" {
		opts.PreferCache = cachemode.Default
	}

	return &CollectionQuery{
		c:          c,
		collection: collection,
		desc:       desc,
		opts:       opts,
		settings:   opts.Query.Resolve(c.QueryDefaults()),
		key:        CollectionKey(c, collection, desc),
		state:      QueryState[CollectionResult]{Status: StatusIdle},
	}, nil
}

func (q *CollectionQuery) Key() string        { return q.key }
func (q *CollectionQuery) Collection() string { return q.collection }
func (q *CollectionQuery) Enabled() bool      { return q.settings.Enabled }

// State returns the current query state.
func (q *CollectionQuery) State() QueryState[CollectionResult] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

// Fetch returns the cached result or reads the collection. A disabled query
// returns the zero result and stays idle.
func (q *CollectionQuery) Fetch(ctx context.Context) (CollectionResult, error) {
	if !q.settings.Enabled {
		return q.State().Data, nil
	}

	q.setFetching(true)
	started := time.Now()
	ctx, span := startSpan(ctx, q.c, OpCollection, q.collection,
		attribute.String("docquery.preference", string(q.opts.PreferCache)),
		attribute.String("docquery.key", q.key),
	)

	entry, fetched, err := fetchCached(ctx, q.c, q.key, q.settings.StaleTime, q.fetch)
	endSpan(span, err)
	logTiming(q.c, q.opts.Debug, OpCollection, q.collection, started, err, "cached", !fetched)

	if err != nil {
		err = fail(q.c, OpCollection, q.collection, err)
		q.setError(err)
		return CollectionResult{}, err
	}

	q.setSuccess(q.result(entry.Value), entry.Source, entry.FetchedAt)
	return q.result(entry.Value), nil
}

// Refetch drops the cached result and reads again.
func (q *CollectionQuery) Refetch(ctx context.Context) (CollectionResult, error) {
	if err := q.Invalidate(ctx); err != nil {
		return CollectionResult{}, err
	}
	return q.Fetch(ctx)
}

// Invalidate drops the cached result so the next Fetch reads again.
func (q *CollectionQuery) Invalidate(ctx context.Context) error {
	return q.c.CacheService().Delete(ctx, q.key)
}

func (q *CollectionQuery) fetch(ctx context.Context) (collectionPage, cachemode.Source, error) {
	reader := collectionReader{
		store:       q.c.Store(),
		collection:  q.collection,
		constraints: query.Build(q.desc),
	}

	started := time.Now()
	res, err := withRetry(ctx, q.settings.Retry, q.settings.RetryDelay, func(ctx context.Context) (resolved[*docstore.QuerySnapshot], error) {
		snap, source, err := cachemode.Resolve[*docstore.QuerySnapshot](ctx, q.opts.PreferCache, reader)
		return resolved[*docstore.QuerySnapshot]{value: snap, source: source}, err
	})

	q.c.Metrics().ReadCompleted(OpCollection, q.collection, string(res.source), time.Since(started), err)
	if q.opts.PreferCache == cachemode.CacheFirst && res.source == cachemode.SourceServer {
		q.c.Metrics().CacheFallback(OpCollection, q.collection)
	}
	if err != nil {
		return collectionPage{}, res.source, err
	}

	page := normalizeCollection(res.value)
	q.c.Stats().RecordRead(ctx, q.collection)
	return page, res.source, nil
}

func normalizeCollection(snap *docstore.QuerySnapshot) collectionPage {
	page := collectionPage{
		records: make([]record.Record, 0, snap.Size()),
		meta:    PageMeta{Empty: snap.Empty(), Size: snap.Size()},
	}
	if snap.Empty() {
		return page
	}
	for _, doc := range snap.Docs {
		page.records = append(page.records, record.New(doc.ID(), doc.Data()))
	}
	page.meta.First = snap.Docs[0]
	page.meta.Last = snap.Docs[len(snap.Docs)-1]
	return page
}

// result deep copies the cached page so callers cannot mutate the cache.
func (q *CollectionQuery) result(page collectionPage) CollectionResult {
	out := CollectionResult{Records: make([]record.Record, len(page.records))}
	for i, r := range page.records {
		out.Records[i] = r.Clone()
	}
	if q.opts.WithMeta {
		meta := page.meta
		out.Meta = &meta
	}
	return out
}

func (q *CollectionQuery) setFetching(fetching bool) {
	q.mu.Lock()
	q.state.Fetching = fetching
	q.mu.Unlock()
}

func (q *CollectionQuery) setSuccess(result CollectionResult, source cachemode.Source, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = QueryState[CollectionResult]{
		Status:    StatusSuccess,
		Data:      result,
		Source:    source,
		UpdatedAt: at,
	}
}

func (q *CollectionQuery) setError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state.Status = StatusError
	q.state.Err = err
	q.state.Fetching = false
	q.state.UpdatedAt = q.c.Now()
}
