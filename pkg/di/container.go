package di

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-docquery/audit"
	"github.com/goliatone/go-docquery/cache"
	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/logging"
	"github.com/goliatone/go-docquery/metrics"
	"github.com/goliatone/go-docquery/stats"
	"github.com/goliatone/go-docquery/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultKeyPrefix namespaces every cache key built by the hooks.
const DefaultKeyPrefix = "dq"

// TracerName is the instrumentation scope of the default tracer.
const TracerName = "github.com/goliatone/go-docquery"

var (
	// ErrNoConfig is returned when a hook is built without a container.
	ErrNoConfig = errors.New("di: no configuration container, build one with di.NewContainer")
	// ErrNoStore is returned by NewContainer when no store client is given.
	ErrNoStore = errors.New("di: store client is required")
)

// ErrorHandler receives every terminal hook failure together with a context
// string of the form "operation:collection".
type ErrorHandler func(err error, context string)

// QueryDefaults are the container wide query options. Hooks override them
// per call.
type QueryDefaults struct {
	// StaleTime is how long a cached result is served without refetching.
	// Zero keeps results fresh until the cache retention window drops them.
	StaleTime  time.Duration
	Enabled    bool
	Retry      int
	RetryDelay time.Duration
}

// DefaultQueryDefaults returns enabled queries without retries.
func DefaultQueryDefaults() QueryDefaults {
	return QueryDefaults{
		Enabled:    true,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Container holds everything the hooks need: the store client, the query
// cache, logging, error reporting, read statistics and the audit policy.
// It is built once by the host application and passed to every hook.
type Container struct {
	store         docstore.Store
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	cacheConfig   cache.Config
	logger        logging.Logger
	errorHandler  ErrorHandler
	actor         audit.ActorResolver
	keyPrefix     string
	queryDefaults QueryDefaults
	storage       storage.Storage
	openers       []storage.Opener
	stats         *stats.Tracker
	auditConfig   audit.Config
	auditWriter   *audit.Writer
	metrics       metrics.Recorder
	tracer        trace.Tracer
	now           func() time.Time
}

// Option configures a Container.
type Option func(*Container)

func WithLogger(logger logging.Logger) Option {
	return func(c *Container) { c.logger = logging.OrNoOp(logger) }
}

func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *Container) { c.errorHandler = handler }
}

// WithActorResolver sets how audit entries learn the acting user.
func WithActorResolver(resolver audit.ActorResolver) Option {
	return func(c *Container) { c.actor = resolver }
}

func WithKeyPrefix(prefix string) Option {
	return func(c *Container) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

func WithQueryDefaults(defaults QueryDefaults) Option {
	return func(c *Container) { c.queryDefaults = defaults }
}

// WithStorage sets the statistics storage adapter explicitly.
func WithStorage(s storage.Storage) Option {
	return func(c *Container) { c.storage = s }
}

// WithStorageOpeners replaces the persistent storage candidates tried when
// no explicit adapter is set. Passing none selects in-memory storage.
func WithStorageOpeners(openers ...storage.Opener) Option {
	return func(c *Container) { c.openers = openers }
}

func WithAudit(cfg audit.Config) Option {
	return func(c *Container) { c.auditConfig = cfg }
}

func WithCacheConfig(cfg cache.Config) Option {
	return func(c *Container) { c.cacheConfig = cfg }
}

// WithCacheService replaces the sturdyc backed cache service.
func WithCacheService(service cache.CacheService) Option {
	return func(c *Container) { c.cacheService = service }
}

func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Container) { c.keySerializer = serializer }
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Container) { c.metrics = metrics.OrNoOp(recorder) }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Container) { c.tracer = tracer }
}

// WithClock sets the time source used for audit entries and staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Container) { c.now = now }
}

// NewContainer creates a container around store. Unset dependencies get
// defaults: a sturdyc cache built from cache.DefaultConfig, a no-op logger,
// statistics in the user cache directory (memory when unavailable) and a
// global otel tracer.
func NewContainer(store docstore.Store, opts ...Option) (*Container, error) {
	if store == nil {
		return nil, ErrNoStore
	}

	c := &Container{
		store:         store,
		cacheConfig:   cache.DefaultConfig(),
		logger:        logging.NoOpLogger{},
		keyPrefix:     DefaultKeyPrefix,
		queryDefaults: DefaultQueryDefaults(),
		openers:       []storage.Opener{storage.DefaultFileOpener()},
		metrics:       metrics.NoOp{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cacheService == nil {
		service, err := cache.NewCacheService(c.cacheConfig)
		if err != nil {
			return nil, fmt.Errorf("di: cache service: %w", err)
		}
		c.cacheService = service
	}
	if c.keySerializer == nil {
		c.keySerializer = cache.NewDefaultKeySerializer()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(TracerName)
	}

	c.storage = storage.Resolve(c.storage, c.openers...)
	c.stats = stats.NewTracker(c.storage, stats.WithLogger(c.logger), stats.WithClock(c.now))
	c.auditWriter = audit.NewWriter(store,
		audit.WithActorResolver(c.actor),
		audit.WithLogger(c.logger),
		audit.WithClock(c.now),
		audit.WithFailureHook(func(logCollection string, _ error) {
			c.metrics.AuditFailed(logCollection)
		}),
	)

	return c, nil
}

// Ensure returns ErrNoConfig when c is nil.
func Ensure(c *Container) error {
	if c == nil {
		return ErrNoConfig
	}
	return nil
}

func (c *Container) Store() docstore.Store { return c.store }

// CacheService returns the query cache shared by every hook.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// CacheConfig returns a copy of the cache configuration.
func (c *Container) CacheConfig() cache.Config { return c.cacheConfig }

func (c *Container) Logger() logging.Logger { return c.logger }

func (c *Container) KeyPrefix() string { return c.keyPrefix }

func (c *Container) QueryDefaults() QueryDefaults { return c.queryDefaults }

// Storage returns the resolved statistics storage adapter.
func (c *Container) Storage() storage.Storage { return c.storage }

func (c *Container) Stats() *stats.Tracker { return c.stats }

func (c *Container) Audit() audit.Config { return c.auditConfig }

func (c *Container) AuditWriter() *audit.Writer { return c.auditWriter }

func (c *Container) Metrics() metrics.Recorder { return c.metrics }

func (c *Container) Tracer() trace.Tracer { return c.tracer }

func (c *Container) Now() time.Time { return c.now() }

// HandleError forwards err to the error handler. A panicking handler is
// logged and never reaches the hook caller.
func (c *Container) HandleError(err error, context string) {
	if err == nil || c.errorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("di: error handler panicked", "context", context, "panic", r)
		}
	}()
	c.errorHandler(err, context)
}
