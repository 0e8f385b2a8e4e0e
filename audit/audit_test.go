package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/docstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

type failingStore struct {
	docstore.Store
	err error
}

func (s failingStore) AddDoc(context.Context, string, map[string]any) (string, error) {
	return "", s.err
}

var fixedNow = time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC)

func TestConfig_LogCollection(t *testing.T) {
	assert.Equal(t, "todos_log", Config{}.LogCollection("todos"))
	assert.Equal(t, "audit_todos", Config{ResolveLogCollection: func(c string) string { return "audit_" + c }}.LogCollection("todos"))
	assert.Equal(t, "todos_log", Config{ResolveLogCollection: func(string) string { return "" }}.LogCollection("todos"))
}

func TestEntry_Fields(t *testing.T) {
	actor := "user-1"

	create := Entry{OriginalDocID: "t1", Action: ActionCreate, Payload: map[string]any{"title": "x"}}.Fields(&actor, fixedNow)
	assert.Equal(t, "CREATE", create["action"])
	assert.Equal(t, "user-1", create["modifiedBy"])
	assert.Equal(t, fixedNow, create["modifiedOn"])
	assert.True(t, docstore.IsServerTimestamp(create["timestamp"]))
	assert.Equal(t, map[string]any{"title": "x"}, create["payload"])

	update := Entry{OriginalDocID: "t1", Action: ActionUpdate, Payload: map[string]any{"done": true}}.Fields(nil, fixedNow)
	assert.Nil(t, update["modifiedBy"])
	assert.NotContains(t, update, "previousData")

	withPrev := Entry{Action: ActionUpdate, PreviousData: map[string]any{"done": false}}.Fields(nil, fixedNow)
	assert.Equal(t, map[string]any{"done": false}, withPrev["previousData"])

	del := Entry{OriginalDocID: "t1", Action: ActionDelete}.Fields(nil, fixedNow)
	assert.Contains(t, del, "deletedData")
	assert.Nil(t, del["deletedData"])
	assert.NotContains(t, del, "payload")
}

func TestWriter_Write(t *testing.T) {
	ctx := context.Background()
	client := docstore.NewClient(memstore.New())
	logger := &recordingLogger{}

	w := NewWriter(client,
		WithActorResolver(func(context.Context) (string, bool) { return "user-1", true }),
		WithLogger(logger),
		WithClock(func() time.Time { return fixedNow }),
	)

	id, ok := w.Write(ctx, "todos_log", Entry{OriginalDocID: "t1", Action: ActionDelete, DeletedData: map[string]any{"title": "x"}})
	require.True(t, ok)

	doc, err := client.GetDocFromServer(ctx, "todos_log", id)
	require.NoError(t, err)
	data := doc.Data()
	assert.Equal(t, "DELETE", data["action"])
	assert.Equal(t, "t1", data["originalDocId"])
	assert.Equal(t, "user-1", data["modifiedBy"])
	assert.Equal(t, map[string]any{"title": "x"}, data["deletedData"])
	assert.IsType(t, time.Time{}, data["timestamp"])
	assert.Empty(t, logger.warns)
}

func TestWriter_MissingActorStillWrites(t *testing.T) {
	ctx := context.Background()
	client := docstore.NewClient(memstore.New())
	logger := &recordingLogger{}

	w := NewWriter(client, WithLogger(logger))
	id, ok := w.Write(ctx, "todos_log", Entry{OriginalDocID: "t1", Action: ActionCreate})
	require.True(t, ok)

	doc, err := client.GetDocFromServer(ctx, "todos_log", id)
	require.NoError(t, err)
	v, found := doc.Get("modifiedBy")
	assert.True(t, found)
	assert.Nil(t, v)
	assert.Len(t, logger.warns, 1)
}

func TestWriter_FailuresAreSwallowed(t *testing.T) {
	logger := &recordingLogger{}
	var failedOn string
	w := NewWriter(failingStore{err: errors.New("permission denied")},
		WithLogger(logger),
		WithActorResolver(func(context.Context) (string, bool) { return "user-1", true }),
		WithFailureHook(func(c string, _ error) { failedOn = c }),
	)

	id, ok := w.Write(context.Background(), "todos_log", Entry{Action: ActionUpdate})
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, "todos_log", failedOn)
	assert.Len(t, logger.warns, 1)
}

func TestWriter_PanicsAreSwallowed(t *testing.T) {
	w := NewWriter(failingStore{}, WithActorResolver(func(context.Context) (string, bool) {
		panic("resolver exploded")
	}))

	assert.NotPanics(t, func() {
		_, ok := w.Write(context.Background(), "todos_log", Entry{Action: ActionCreate})
		assert.False(t, ok)
	})
}
