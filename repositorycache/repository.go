package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/hooks"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/goliatone/go-docquery/query"
	"github.com/goliatone/go-docquery/record"
)

// ErrNoCollection is returned when no collection name was given and none
// can be derived from T.
var ErrNoCollection = errors.New("repositorycache: collection name required")

// Repository is a typed view of one collection.
type Repository[T any] struct {
	c          *di.Container
	collection string
	read       hooks.ReadOptions
	write      hooks.WriteOptions
}

// Option configures a Repository.
type Option func(*settings)

type settings struct {
	read  hooks.ReadOptions
	write hooks.WriteOptions
}

// WithReadOptions sets the options used by every read.
func WithReadOptions(opts hooks.ReadOptions) Option {
	return func(s *settings) { s.read = opts }
}

// WithWriteOptions sets the options used by every write.
func WithWriteOptions(opts hooks.WriteOptions) Option {
	return func(s *settings) { s.write = opts }
}

// New returns a repository for collection, or for CollectionName[T] when
// collection is empty.
func New[T any](c *di.Container, collection string, opts ...Option) (*Repository[T], error) {
	if err := di.Ensure(c); err != nil {
		return nil, err
	}
	if collection == "" {
		collection = CollectionName[T]()
	}
	if collection == "" {
		return nil, ErrNoCollection
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.read.Validate(); err != nil {
		return nil, fmt.Errorf("repositorycache: invalid read options: %w", err)
	}

	return &Repository[T]{c: c, collection: collection, read: s.read, write: s.write}, nil
}

func (r *Repository[T]) Collection() string { return r.collection }

// GetByID returns the document id, or an error wrapping docstore.ErrNotFound.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, record.ErrMissingID
	}
	q, err := hooks.UseDocument(r.c, r.collection, id, r.read)
	if err != nil {
		return zero, err
	}
	doc, err := q.Fetch(ctx)
	if err != nil {
		return zero, err
	}
	if doc == nil {
		return zero, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, r.collection, id)
	}
	return record.Decode[T](doc)
}

// Get returns the first document matching desc.
func (r *Repository[T]) Get(ctx context.Context, desc *query.Descriptor) (T, error) {
	var zero T
	first := cloneDescriptor(desc).WithLimit(1)
	items, _, err := r.List(ctx, first)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("%w: no %s document matches", docstore.ErrNotFound, r.collection)
	}
	return items[0], nil
}

// List returns the documents matching desc and how many there are.
func (r *Repository[T]) List(ctx context.Context, desc *query.Descriptor) ([]T, int, error) {
	q, err := hooks.UseCollection(r.c, r.collection, desc, r.read)
	if err != nil {
		return nil, 0, err
	}
	result, err := q.Fetch(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := record.DecodeAll[T](result.Records)
	if err != nil {
		return nil, 0, err
	}
	return items, len(items), nil
}

// Count returns how many documents match desc. It shares the cache entry of
// List with the same descriptor.
func (r *Repository[T]) Count(ctx context.Context, desc *query.Descriptor) (int, error) {
	q, err := hooks.UseCollection(r.c, r.collection, desc, r.read)
	if err != nil {
		return 0, err
	}
	result, err := q.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return len(result.Records), nil
}

// Create stores v under a new id and returns it with the id set. Any id
// already on v is ignored.
func (r *Repository[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	fields, err := record.Encode(v)
	if err != nil {
		return zero, err
	}

	add, err := hooks.UseAddDocument(r.c, r.collection, r.write)
	if err != nil {
		return zero, err
	}
	out, err := add.Mutate(ctx, fields.WithoutID())
	if err != nil {
		return zero, err
	}
	return record.Decode[T](out)
}

// CreateMany creates every item in order and stops at the first failure.
func (r *Repository[T]) CreateMany(ctx context.Context, items []T) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		created, err := r.Create(ctx, item)
		if err != nil {
			return out, err
		}
		out = append(out, created)
	}
	return out, nil
}

// Update merges every field of v into the stored document identified by
// v's id.
func (r *Repository[T]) Update(ctx context.Context, v T) (T, error) {
	var zero T
	id, err := extractID(v)
	if err != nil {
		return zero, err
	}
	fields, err := record.Encode(v)
	if err != nil {
		return zero, err
	}

	update, err := hooks.UseUpdateDocument(r.c, r.collection, r.write)
	if err != nil {
		return zero, err
	}
	out, err := update.Mutate(ctx, record.New(id, fields.WithoutID()))
	if err != nil {
		return zero, err
	}
	return record.Decode[T](out)
}

// Delete removes the document id.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	del, err := hooks.UseDeleteDocument(r.c, r.collection, r.write)
	if err != nil {
		return err
	}
	_, err = del.Mutate(ctx, id)
	return err
}

// Invalidate drops every cached read of the collection.
func (r *Repository[T]) Invalidate(ctx context.Context) error {
	return hooks.InvalidateCollection(ctx, r.c, r.collection)
}

// extractID reads the identifier through record.Identifiable, then an ID
// string field.
func extractID(v any) (string, error) {
	if ident, ok := v.(record.Identifiable); ok {
		if id := ident.GetID(); id != "" {
			return id, nil
		}
		return "", record.ErrMissingID
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", record.ErrMissingID
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", fmt.Errorf("repositorycache: cannot extract id from %T", v)
	}
	field := rv.FieldByName("ID")
	if !field.IsValid() || field.Kind() != reflect.String || field.String() == "" {
		return "", record.ErrMissingID
	}
	return field.String(), nil
}

func cloneDescriptor(desc *query.Descriptor) *query.Descriptor {
	if desc == nil {
		return &query.Descriptor{}
	}
	out := *desc
	out.Filters = append([]query.Filter(nil), desc.Filters...)
	out.Sorts = append([]query.Sort(nil), desc.Sorts...)
	return &out
}
