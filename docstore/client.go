package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-docquery/logging"
	"github.com/puzpuzpuz/xsync/v3"
)

var _ Store = (*Client)(nil)

// Client implements Store over a Backend and a local document mirror.
type Client struct {
	backend Backend
	mirror  *xsync.MapOf[string, *DocumentSnapshot]
	logger  logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger used for mirror fallbacks.
func WithClientLogger(logger logging.Logger) ClientOption {
	return func(c *Client) { c.logger = logging.OrNoOp(logger) }
}

// NewClient creates a Client over backend with an empty mirror.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend: backend,
		mirror:  xsync.NewMapOf[string, *DocumentSnapshot](),
		logger:  logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func mirrorKey(collection, id string) string {
	return collection + "/" + id
}

// GetDocs reads from the server and falls back to the mirror only when the
// backend reports ErrUnavailable.
func (c *Client) GetDocs(ctx context.Context, collection string, constraints ...Constraint) (*QuerySnapshot, error) {
	snap, err := c.GetDocsFromServer(ctx, collection, constraints...)
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return snap, err
	}
	c.logger.Debug("docstore: backend unavailable, reading collection from mirror", "collection", collection)
	return c.GetDocsFromCache(ctx, collection, constraints...)
}

// GetDocsFromServer runs the query on the backend and mirrors every result.
func (c *Client) GetDocsFromServer(ctx context.Context, collection string, constraints ...Constraint) (*QuerySnapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidArgument)
	}
	docs, err := c.backend.Query(ctx, collection, constraints...)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		c.remember(doc)
	}
	return &QuerySnapshot{Docs: docs}, nil
}

// GetDocsFromCache evaluates the query over mirrored documents. An empty
// result is not an error.
func (c *Client) GetDocsFromCache(ctx context.Context, collection string, constraints ...Constraint) (*QuerySnapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []*DocumentSnapshot
	c.mirror.Range(func(_ string, doc *DocumentSnapshot) bool {
		if doc.Collection() == collection {
			docs = append(docs, doc.cached())
		}
		return true
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID() < docs[j].ID() })

	matched, err := Evaluate(docs, constraints...)
	if err != nil {
		return nil, err
	}
	return &QuerySnapshot{Docs: matched, FromCache: true}, nil
}

// GetDoc reads from the server and falls back to the mirror only when the
// backend reports ErrUnavailable.
func (c *Client) GetDoc(ctx context.Context, collection, id string) (*DocumentSnapshot, error) {
	snap, err := c.GetDocFromServer(ctx, collection, id)
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return snap, err
	}
	c.logger.Debug("docstore: backend unavailable, reading document from mirror", "collection", collection, "id", id)
	cached, cacheErr := c.GetDocFromCache(ctx, collection, id)
	if cacheErr != nil {
		return nil, err
	}
	return cached, nil
}

// GetDocFromServer reads one document from the backend. A missing document
// is dropped from the mirror.
func (c *Client) GetDocFromServer(ctx context.Context, collection, id string) (*DocumentSnapshot, error) {
	if err := validateRef(collection, id); err != nil {
		return nil, err
	}
	snap, err := c.backend.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = MissingSnapshot(collection, id)
	}
	if snap.Exists() {
		c.remember(snap)
	} else {
		c.mirror.Delete(mirrorKey(collection, id))
	}
	return snap, nil
}

// GetDocFromCache returns the mirrored document or ErrNotInCache.
func (c *Client) GetDocFromCache(ctx context.Context, collection, id string) (*DocumentSnapshot, error) {
	if err := validateRef(collection, id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, ok := c.mirror.Load(mirrorKey(collection, id))
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotInCache, collection, id)
	}
	return doc.cached(), nil
}

// AddDoc creates a document with a backend-assigned id.
func (c *Client) AddDoc(ctx context.Context, collection string, data map[string]any) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("%w: empty collection", ErrInvalidArgument)
	}
	snap, err := c.backend.Create(ctx, collection, data)
	if err != nil {
		return "", err
	}
	c.remember(snap)
	return snap.ID(), nil
}

// UpdateDoc merges data into an existing document.
func (c *Client) UpdateDoc(ctx context.Context, collection, id string, data map[string]any) error {
	if err := validateRef(collection, id); err != nil {
		return err
	}
	snap, err := c.backend.Update(ctx, collection, id, data)
	if err != nil {
		return err
	}
	c.remember(snap)
	return nil
}

// DeleteDoc removes a document. Deleting an absent document succeeds.
func (c *Client) DeleteDoc(ctx context.Context, collection, id string) error {
	if err := validateRef(collection, id); err != nil {
		return err
	}
	if err := c.backend.Delete(ctx, collection, id); err != nil {
		return err
	}
	c.mirror.Delete(mirrorKey(collection, id))
	return nil
}

// Forget empties the local mirror.
func (c *Client) Forget() {
	c.mirror.Clear()
}

func (c *Client) remember(doc *DocumentSnapshot) {
	if doc.Exists() {
		c.mirror.Store(mirrorKey(doc.Collection(), doc.ID()), doc)
	}
}

func validateRef(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidArgument)
	}
	if id == "" {
		return fmt.Errorf("%w: empty document id", ErrInvalidArgument)
	}
	return nil
}
