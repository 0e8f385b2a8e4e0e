// Package memstore is an in-memory docstore.Backend.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/puzpuzpuz/xsync/v3"
)

var _ docstore.Backend = (*Store)(nil)

type collection = *xsync.MapOf[string, map[string]any]

// Store keeps documents per collection in memory.
type Store struct {
	mu          sync.Mutex
	collections *xsync.MapOf[string, collection]
	now         func() time.Time
	newID       func() string
	unavailable bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time used to resolve server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the document id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: xsync.NewMapOf[string, collection](),
		now:         time.Now,
		newID:       docstore.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUnavailable makes every call fail with docstore.ErrUnavailable until
// reset, simulating a lost connection.
func (s *Store) SetUnavailable(down bool) {
	s.mu.Lock()
	s.unavailable = down
	s.mu.Unlock()
}

// Seed stores data under id without resolving timestamps.
func (s *Store) Seed(collectionName, id string, data map[string]any) {
	s.docs(collectionName).Store(id, docstore.CloneData(data))
}

func (s *Store) Query(ctx context.Context, collectionName string, constraints ...docstore.Constraint) ([]*docstore.DocumentSnapshot, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var all []*docstore.DocumentSnapshot
	s.docs(collectionName).Range(func(id string, data map[string]any) bool {
		all = append(all, docstore.NewDocumentSnapshot(collectionName, id, data))
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	return docstore.Evaluate(all, constraints...)
}

func (s *Store) Get(ctx context.Context, collectionName, id string) (*docstore.DocumentSnapshot, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	data, ok := s.docs(collectionName).Load(id)
	if !ok {
		return docstore.MissingSnapshot(collectionName, id), nil
	}
	return docstore.NewDocumentSnapshot(collectionName, id, data), nil
}

func (s *Store) Create(ctx context.Context, collectionName string, data map[string]any) (*docstore.DocumentSnapshot, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	id := s.newID()
	stored := docstore.ResolveServerTimestamps(data, s.now())
	if stored == nil {
		stored = map[string]any{}
	}
	s.docs(collectionName).Store(id, stored)
	return docstore.NewDocumentSnapshot(collectionName, id, stored), nil
}

func (s *Store) Update(ctx context.Context, collectionName, id string, data map[string]any) (*docstore.DocumentSnapshot, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	patch := docstore.ResolveServerTimestamps(data, s.now())

	var missing bool
	merged, _ := s.docs(collectionName).Compute(id, func(old map[string]any, loaded bool) (map[string]any, bool) {
		if !loaded {
			missing = true
			return nil, true
		}
		next := docstore.CloneData(old)
		for k, v := range patch {
			next[k] = v
		}
		return next, false
	})
	if missing {
		return nil, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collectionName, id)
	}
	return docstore.NewDocumentSnapshot(collectionName, id, merged), nil
}

func (s *Store) Delete(ctx context.Context, collectionName, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.docs(collectionName).Delete(id)
	return nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collectionName string) int {
	return s.docs(collectionName).Size()
}

func (s *Store) docs(name string) collection {
	c, _ := s.collections.LoadOrCompute(name, func() collection {
		return xsync.NewMapOf[string, map[string]any]()
	})
	return c
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	down := s.unavailable
	s.mu.Unlock()
	if down {
		return docstore.ErrUnavailable
	}
	return nil
}
