// Package stats counts collection reads in a key/value storage adapter.
package stats

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-docquery/logging"
	"github.com/goliatone/go-docquery/storage"
)

const (
	// KeyPrefix namespaces every key the tracker writes.
	KeyPrefix = "dq_stats_"

	readCountSuffix   = "_readCount"
	lastFetchedSuffix = "_lastFetched"
)

// Stats is the read telemetry of one collection.
type Stats struct {
	ReadCount   int        `json:"readCount"`
	LastFetched *time.Time `json:"lastFetched"`
}

// Tracker records reads per collection. Writes are last-write-wins: two
// concurrent RecordRead calls may both observe the same previous count.
type Tracker struct {
	storage storage.Storage
	logger  logging.Logger
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger reports storage failures to logger.
func WithLogger(logger logging.Logger) Option {
	return func(t *Tracker) { t.logger = logging.OrNoOp(logger) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker over s. A nil s uses a MemoryStorage.
func NewTracker(s storage.Storage, opts ...Option) *Tracker {
	if s == nil {
		s = storage.NewMemoryStorage()
	}
	t := &Tracker{storage: s, logger: logging.NoOpLogger{}, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ReadCountKey returns the storage key holding the read count of collection.
func ReadCountKey(collection string) string {
	return KeyPrefix + collection + readCountSuffix
}

// LastFetchedKey returns the storage key holding the last fetch time of collection.
func LastFetchedKey(collection string) string {
	return KeyPrefix + collection + lastFetchedSuffix
}

// RecordRead increments the read count of collection, stamps the fetch time and
// returns the new count. Absent or non-numeric counts start from zero.
func (t *Tracker) RecordRead(ctx context.Context, collection string) int {
	count := t.readCount(ctx, collection) + 1
	now := t.now().UTC().Format(time.RFC3339Nano)

	if err := t.storage.Set(ctx, ReadCountKey(collection), strconv.Itoa(count)); err != nil {
		t.logger.Warn("stats: failed to store read count", "collection", collection, "error", err)
	}
	if err := t.storage.Set(ctx, LastFetchedKey(collection), now); err != nil {
		t.logger.Warn("stats: failed to store last fetch time", "collection", collection, "error", err)
	}
	return count
}

// Stats returns the telemetry of collection, {0, nil} when nothing is stored.
func (t *Tracker) Stats(ctx context.Context, collection string) Stats {
	out := Stats{ReadCount: t.readCount(ctx, collection)}

	raw, ok, err := t.storage.Get(ctx, LastFetchedKey(collection))
	if err != nil {
		t.logger.Warn("stats: failed to read last fetch time", "collection", collection, "error", err)
		return out
	}
	if !ok {
		return out
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		out.LastFetched = &ts
	}
	return out
}

// Clear removes the telemetry of collection. Clearing twice is harmless.
func (t *Tracker) Clear(ctx context.Context, collection string) {
	for _, key := range []string{ReadCountKey(collection), LastFetchedKey(collection)} {
		if err := t.storage.Remove(ctx, key); err != nil {
			t.logger.Warn("stats: failed to remove key", "key", key, "error", err)
		}
	}
}

// ClearAll removes every tracker key and returns how many were removed.
// Keys outside the tracker namespace are left untouched.
func (t *Tracker) ClearAll(ctx context.Context) int {
	keys := t.ownKeys(ctx)
	removed := 0
	for _, key := range keys {
		if err := t.storage.Remove(ctx, key); err != nil {
			t.logger.Warn("stats: failed to remove key", "key", key, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// Collections lists the collections that currently have a read count.
func (t *Tracker) Collections(ctx context.Context) []string {
	var names []string
	for _, key := range t.ownKeys(ctx) {
		if strings.HasSuffix(key, readCountSuffix) {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(key, KeyPrefix), readCountSuffix))
		}
	}
	return names
}

func (t *Tracker) readCount(ctx context.Context, collection string) int {
	raw, ok, err := t.storage.Get(ctx, ReadCountKey(collection))
	if err != nil {
		t.logger.Warn("stats: failed to read count", "collection", collection, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ownKeys snapshots the tracker keys before any removal shifts indices.
func (t *Tracker) ownKeys(ctx context.Context) []string {
	n, err := t.storage.Len(ctx)
	if err != nil {
		t.logger.Warn("stats: failed to count keys", "error", err)
		return nil
	}

	var keys []string
	for i := 0; i < n; i++ {
		key, ok, err := t.storage.Key(ctx, i)
		if err != nil || !ok {
			continue
		}
		if isTrackerKey(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func isTrackerKey(key string) bool {
	if !strings.HasPrefix(key, KeyPrefix) {
		return false
	}
	return strings.HasSuffix(key, readCountSuffix) || strings.HasSuffix(key, lastFetchedSuffix)
}
