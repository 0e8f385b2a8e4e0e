package hooks_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/docstore/memstore"
	"github.com/goliatone/go-docquery/metrics"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/goliatone/go-docquery/pkg/testsupport"
	"github.com/goliatone/go-docquery/storage"
	"github.com/stretchr/testify/require"
)

// spyStore counts calls per method and can fail selected calls.
type spyStore struct {
	inner docstore.Store

	mu    sync.Mutex
	calls map[string]int
	fail  func(method, collection string) error
}

func newSpyStore(inner docstore.Store) *spyStore {
	return &spyStore{inner: inner, calls: make(map[string]int)}
}

func (s *spyStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *spyStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *spyStore) FailWith(fn func(method, collection string) error) {
	s.mu.Lock()
	s.fail = fn
	s.mu.Unlock()
}

func (s *spyStore) enter(method, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	if s.fail != nil {
		return s.fail(method, collection)
	}
	return nil
}

func (s *spyStore) GetDocs(ctx context.Context, collection string, constraints ...docstore.Constraint) (*docstore.QuerySnapshot, error) {
	if err := s.enter("GetDocs", collection); err != nil {
		return nil, err
	}
	return s.inner.GetDocs(ctx, collection, constraints...)
}

func (s *spyStore) GetDocsFromServer(ctx context.Context, collection string, constraints ...docstore.Constraint) (*docstore.QuerySnapshot, error) {
	if err := s.enter("GetDocsFromServer", collection); err != nil {
		return nil, err
	}
	return s.inner.GetDocsFromServer(ctx, collection, constraints...)
}

func (s *spyStore) GetDocsFromCache(ctx context.Context, collection string, constraints ...docstore.Constraint) (*docstore.QuerySnapshot, error) {
	if err := s.enter("GetDocsFromCache", collection); err != nil {
		return nil, err
	}
	return s.inner.GetDocsFromCache(ctx, collection, constraints...)
}

func (s *spyStore) GetDoc(ctx context.Context, collection, id string) (*docstore.DocumentSnapshot, error) {
	if err := s.enter("GetDoc", collection); err != nil {
		return nil, err
	}
	return s.inner.GetDoc(ctx, collection, id)
}

func (s *spyStore) GetDocFromServer(ctx context.Context, collection, id string) (*docstore.DocumentSnapshot, error) {
	if err := s.enter("GetDocFromServer", collection); err != nil {
		return nil, err
	}
	return s.inner.GetDocFromServer(ctx, collection, id)
}

func (s *spyStore) GetDocFromCache(ctx context.Context, collection, id string) (*docstore.DocumentSnapshot, error) {
	if err := s.enter("GetDocFromCache", collection); err != nil {
		return nil, err
	}
	return s.inner.GetDocFromCache(ctx, collection, id)
}

func (s *spyStore) AddDoc(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := s.enter("AddDoc", collection); err != nil {
		return "", err
	}
	return s.inner.AddDoc(ctx, collection, data)
}

func (s *spyStore) UpdateDoc(ctx context.Context, collection, id string, data map[string]any) error {
	if err := s.enter("UpdateDoc", collection); err != nil {
		return err
	}
	return s.inner.UpdateDoc(ctx, collection, id, data)
}

func (s *spyStore) DeleteDoc(ctx context.Context, collection, id string) error {
	if err := s.enter("DeleteDoc", collection); err != nil {
		return err
	}
	return s.inner.DeleteDoc(ctx, collection, id)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	c       *di.Container
	backend *memstore.Store
	client  *docstore.Client
	store   *spyStore
	stats   storage.Storage
	metrics *metrics.InMemory
	logger  *testsupport.RecordingLogger
	clock   *fakeClock
}

// newHarness seeds a memstore from testdata and wires a container around a
// spy of the client. The client mirror starts empty.
func newHarness(t testing.TB, opts ...di.Option) *harness {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	backend := memstore.New(memstore.WithClock(clock.Now))
	testsupport.SeedMemstore(backend, testsupport.LoadCollections(t, testsupport.FixturePath("collections.json")))

	h := &harness{
		backend: backend,
		client:  docstore.NewClient(backend),
		stats:   storage.NewMemoryStorage(),
		metrics: metrics.NewInMemory(),
		logger:  &testsupport.RecordingLogger{},
		clock:   clock,
	}
	h.store = newSpyStore(h.client)

	opts = append([]di.Option{
		di.WithStorage(h.stats),
		di.WithMetrics(h.metrics),
		di.WithLogger(h.logger),
		di.WithClock(clock.Now),
	}, opts...)

	c, err := di.NewContainer(h.store, opts...)
	require.NoError(t, err)
	h.c = c
	return h
}
