package hooks

import (
	"context"

	"github.com/goliatone/go-docquery/cachemode"
	"github.com/goliatone/go-docquery/docstore"
)

type collectionReader struct {
	store       docstore.Store
	collection  string
	constraints []docstore.Constraint
}

var _ cachemode.Reader[*docstore.QuerySnapshot] = collectionReader{}

func (r collectionReader) FromCache(ctx context.Context) (*docstore.QuerySnapshot, error) {
	return r.store.GetDocsFromCache(ctx, r.collection, r.constraints...)
}

func (r collectionReader) FromServer(ctx context.Context) (*docstore.QuerySnapshot, error) {
	return r.store.GetDocsFromServer(ctx, r.collection, r.constraints...)
}

func (r collectionReader) Combined(ctx context.Context) (*docstore.QuerySnapshot, error) {
	return r.store.GetDocs(ctx, r.collection, r.constraints...)
}

// Empty treats a cached empty collection like a miss.
func (r collectionReader) Empty(snap *docstore.QuerySnapshot) bool {
	return snap.Empty()
}

type documentReader struct {
	store      docstore.Store
	collection string
	id         string
}

var _ cachemode.Reader[*docstore.DocumentSnapshot] = documentReader{}

func (r documentReader) FromCache(ctx context.Context) (*docstore.DocumentSnapshot, error) {
	return r.store.GetDocFromCache(ctx, r.collection, r.id)
}

func (r documentReader) FromServer(ctx context.Context) (*docstore.DocumentSnapshot, error) {
	return r.store.GetDocFromServer(ctx, r.collection, r.id)
}

func (r documentReader) Combined(ctx context.Context) (*docstore.DocumentSnapshot, error) {
	return r.store.GetDoc(ctx, r.collection, r.id)
}

func (r documentReader) Empty(snap *docstore.DocumentSnapshot) bool {
	return !snap.Exists()
}
