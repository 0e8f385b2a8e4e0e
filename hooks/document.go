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
	"github.com/goliatone/go-docquery/record"
	"go.opentelemetry.io/otel/attribute"
)

// DocumentQuery is a cached read of one document.
type DocumentQuery struct {
	c          *di.Container
	collection string
	id         string
	opts       ReadOptions
	settings   di.QueryDefaults
	key        string

	mu    sync.RWMutex
	state QueryState[record.Record]
}

// UseDocument builds a document read. An empty id disables the query: Fetch
// then never touches the store and reports no data.
func UseDocument(c *di.Container, collection, id string, opts ReadOptions) (*DocumentQuery, error) {
	if err := di.Ensure(c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(collection) == "" {
		return nil, ErrInvalidCollection
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("hooks: invalid read options: %w", err)
	}
	if opts.PreferCache == "" {
		opts.PreferCache = cachemode.Default
	}

	settings := opts.Query.Resolve(c.QueryDefaults())
	if id == "" {
		settings.Enabled = false
	}

	return &DocumentQuery{
		c:          c,
		collection: collection,
		id:         id,
		opts:       opts,
		settings:   settings,
		key:        DocumentKey(c, collection, id),
		state:      QueryState[record.Record]{Status: StatusIdle},
	}, nil
}

func (q *DocumentQuery) Key() string        { return q.key }
func (q *DocumentQuery) Collection() string { return q.collection }
func (q *DocumentQuery) ID() string         { return q.id }
func (q *DocumentQuery) Enabled() bool      { return q.settings.Enabled }

func (q *DocumentQuery) State() QueryState[record.Record] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

// Fetch returns the document with its id attached, or nil when it does not
// exist.
func (q *DocumentQuery) Fetch(ctx context.Context) (record.Record, error) {
	if !q.settings.Enabled {
		return nil, nil
	}

	q.mu.Lock()
	q.state.Fetching = true
	q.mu.Unlock()

	started := time.Now()
	ctx, span := startSpan(ctx, q.c, OpDocument, q.collection,
		attribute.String("docquery.preference", string(q.opts.PreferCache)),
		attribute.String("docquery.id", q.id),
	)

	entry, fetched, err := fetchCached(ctx, q.c, q.key, q.settings.StaleTime, q.fetch)
	endSpan(span, err)
	logTiming(q.c, q.opts.Debug, OpDocument, q.collection, started, err, "id", q.id, "cached", !fetched)

	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		err = fail(q.c, OpDocument, q.collection, err)
		q.state.Status = StatusError
		q.state.Err = err
		q.state.Fetching = false
		q.state.UpdatedAt = q.c.Now()
		return nil, err
	}

	doc := entry.Value.Clone()
	q.state = QueryState[record.Record]{
		Status:    StatusSuccess,
		Data:      doc,
		Source:    entry.Source,
		UpdatedAt: entry.FetchedAt,
	}
	return doc.Clone(), nil
}

// Refetch drops the cached document and reads again.
func (q *DocumentQuery) Refetch(ctx context.Context) (record.Record, error) {
	if err := q.Invalidate(ctx); err != nil {
		return nil, err
	}
	return q.Fetch(ctx)
}

func (q *DocumentQuery) Invalidate(ctx context.Context) error {
	if !q.settings.Enabled {
		return nil
	}
	return q.c.CacheService().Delete(ctx, q.key)
}

func (q *DocumentQuery) fetch(ctx context.Context) (record.Record, cachemode.Source, error) {
	reader := documentReader{store: q.c.Store(), collection: q.collection, id: q.id}

	started := time.Now()
	res, err := withRetry(ctx, q.settings.Retry, q.settings.RetryDelay, func(ctx context.Context) (resolved[*docstore.DocumentSnapshot], error) {
		snap, source, err := cachemode.Resolve[*docstore.DocumentSnapshot](ctx, q.opts.PreferCache, reader)
		return resolved[*docstore.DocumentSnapshot]{value: snap, source: source}, err
	})

	q.c.Metrics().ReadCompleted(OpDocument, q.collection, string(res.source), time.Since(started), err)
	if q.opts.PreferCache == cachemode.CacheFirst && res.source == cachemode.SourceServer {
		q.c.Metrics().CacheFallback(OpDocument, q.collection)
	}
	if err != nil {
		return nil, res.source, err
	}
	if !res.value.Exists() {
		return nil, res.source, nil
	}
	return record.New(res.value.ID(), res.value.Data()), res.source, nil
}
