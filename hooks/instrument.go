package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goliatone/go-docquery/cache"
	"github.com/goliatone/go-docquery/cachemode"
	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/pkg/di"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// cachedEntry is what the hooks store in the CacheService.
type cachedEntry[T any] struct {
	Value     T
	Source    cachemode.Source
	FetchedAt time.Time
}

type sourcedFetch[T any] func(ctx context.Context) (T, cachemode.Source, error)

// fetchCached reads key through the cache service. Entries older than
// staleTime are dropped and fetched again; a zero staleTime keeps entries
// until the cache evicts them. The bool reports whether this call ran the
// fetch rather than reusing a cached or in-flight result.
func fetchCached[T any](ctx context.Context, c *di.Container, key string, staleTime time.Duration, fetch sourcedFetch[T]) (*cachedEntry[T], bool, error) {
	var fetched atomic.Bool
	fn := func(ctx context.Context) (*cachedEntry[T], error) {
		v, source, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		fetched.Store(true)
		return &cachedEntry[T]{Value: v, Source: source, FetchedAt: c.Now()}, nil
	}

	svc := c.CacheService()
	entry, err := cache.GetOrFetch[*cachedEntry[T]](ctx, svc, key, fn)
	if err == nil && entry != nil && staleTime > 0 && c.Now().Sub(entry.FetchedAt) > staleTime {
		if err := svc.Delete(ctx, key); err != nil {
			c.Logger().Warn("hooks: failed to drop stale entry", "key", key, "error", err)
		}
		entry, err = cache.GetOrFetch[*cachedEntry[T]](ctx, svc, key, fn)
	}
	if err == nil && entry == nil {
		err = fmt.Errorf("hooks: empty cache entry for %s", key)
	}
	return entry, fetched.Load(), err
}

// withRetry runs op once plus up to retries more times with exponential
// backoff starting at delay. Invalid queries and cache-only misses are not
// retried.
func withRetry[T any](ctx context.Context, retries int, delay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if retries <= 0 {
		return op(ctx)
	}

	b := backoff.NewExponentialBackOff()
	if delay > 0 {
		b.InitialInterval = delay
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(retries+1)))
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, docstore.ErrInvalidQuery),
		errors.Is(err, docstore.ErrInvalidArgument),
		errors.Is(err, docstore.ErrNotInCache),
		errors.Is(err, cachemode.ErrUnknownPreference),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func startSpan(ctx context.Context, c *di.Container, op, collection string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String("docquery.operation", op),
		attribute.String("docquery.collection", collection),
	}, attrs...)
	return c.Tracer().Start(ctx, "docquery."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// logTiming reports duration and outcome when the caller asked for debug output.
func logTiming(c *di.Container, debug bool, op, collection string, started time.Time, err error, fields ...any) {
	if !debug {
		return
	}
	fields = append([]any{
		"operation", op,
		"collection", collection,
		"duration", time.Since(started),
		"success", err == nil,
	}, fields...)
	if err != nil {
		fields = append(fields, "error", err)
	}
	c.Logger().Debug("docquery: "+op+" finished", fields...)
}

// fail wraps err as an OperationError and reports it to the error handler.
func fail(c *di.Container, op, collection string, err error) error {
	opErr := &OperationError{Op: op, Collection: collection, Err: err}
	c.HandleError(opErr, opErr.Context())
	return opErr
}
