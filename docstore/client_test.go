package docstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/docstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*docstore.Client, *memstore.Store) {
	t.Helper()
	backend := memstore.New(memstore.WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	backend.Seed("users", "u1", map[string]any{"name": "Ann", "age": 31})
	backend.Seed("users", "u2", map[string]any{"name": "Bo", "age": 25})
	return docstore.NewClient(backend), backend
}

func TestClient_CacheReadsOnlySeeMirroredDocuments(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	snap, err := client.GetDocsFromCache(ctx, "users")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
	assert.True(t, snap.FromCache)

	_, err = client.GetDocFromCache(ctx, "users", "u1")
	assert.True(t, errors.Is(err, docstore.ErrNotInCache))

	server, err := client.GetDocsFromServer(ctx, "users", docstore.OrderBy("age", docstore.Asc))
	require.NoError(t, err)
	require.Equal(t, 2, server.Size())
	assert.Equal(t, "u2", server.Docs[0].ID())
	assert.False(t, server.FromCache)

	cached, err := client.GetDocsFromCache(ctx, "users", docstore.Where("age", docstore.OpGreater, 30))
	require.NoError(t, err)
	require.Equal(t, 1, cached.Size())
	assert.Equal(t, "u1", cached.Docs[0].ID())
	assert.True(t, cached.Docs[0].FromCache())

	doc, err := client.GetDocFromCache(ctx, "users", "u2")
	require.NoError(t, err)
	assert.Equal(t, "Bo", doc.Data()["name"])
}

func TestClient_DefaultModeFallsBackWhenUnavailable(t *testing.T) {
	ctx := context.Background()
	client, backend := newClient(t)

	_, err := client.GetDoc(ctx, "users", "u1")
	require.NoError(t, err)

	backend.SetUnavailable(true)

	doc, err := client.GetDoc(ctx, "users", "u1")
	require.NoError(t, err)
	assert.True(t, doc.FromCache())

	_, err = client.GetDoc(ctx, "users", "u2")
	assert.True(t, errors.Is(err, docstore.ErrUnavailable), "never mirrored, backend error is returned")

	snap, err := client.GetDocs(ctx, "users")
	require.NoError(t, err)
	assert.True(t, snap.FromCache)
	assert.Equal(t, 1, snap.Size())

	_, err = client.GetDocsFromServer(ctx, "users")
	assert.True(t, errors.Is(err, docstore.ErrUnavailable))
}

func TestClient_WritesKeepMirrorInSync(t *testing.T) {
	ctx := context.Background()
	client, backend := newClient(t)

	id, err := client.AddDoc(ctx, "todos", map[string]any{
		"title":     "Buy milk",
		"createdAt": docstore.ServerTimestamp(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, backend.Len("todos"))

	doc, err := client.GetDocFromCache(ctx, "todos", id)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), doc.Data()["createdAt"])

	require.NoError(t, client.UpdateDoc(ctx, "todos", id, map[string]any{"done": true}))
	doc, err = client.GetDocFromCache(ctx, "todos", id)
	require.NoError(t, err)
	assert.Equal(t, true, doc.Data()["done"])
	assert.Equal(t, "Buy milk", doc.Data()["title"])

	require.NoError(t, client.DeleteDoc(ctx, "todos", id))
	_, err = client.GetDocFromCache(ctx, "todos", id)
	assert.True(t, errors.Is(err, docstore.ErrNotInCache))

	err = client.UpdateDoc(ctx, "todos", id, map[string]any{"done": false})
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}

func TestClient_MissingServerDocumentLeavesMirror(t *testing.T) {
	ctx := context.Background()
	client, backend := newClient(t)

	_, err := client.GetDoc(ctx, "users", "u1")
	require.NoError(t, err)
	require.NoError(t, backend.Delete(ctx, "users", "u1"))

	snap, err := client.GetDocFromServer(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, snap.Exists())

	_, err = client.GetDocFromCache(ctx, "users", "u1")
	assert.True(t, errors.Is(err, docstore.ErrNotInCache))
}

func TestClient_RejectsEmptyReferences(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	_, err := client.GetDoc(ctx, "users", "")
	assert.True(t, errors.Is(err, docstore.ErrInvalidArgument))
	_, err = client.GetDocs(ctx, "")
	assert.True(t, errors.Is(err, docstore.ErrInvalidArgument))
	_, err = client.AddDoc(ctx, "", map[string]any{})
	assert.True(t, errors.Is(err, docstore.ErrInvalidArgument))
}
