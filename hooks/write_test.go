package hooks_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-docquery/audit"
	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/hooks"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/goliatone/go-docquery/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trimTitle(data map[string]any) (map[string]any, error) {
	if title, ok := data["title"].(string); ok {
		data["title"] = strings.TrimSpace(title)
	}
	return data, nil
}

func logEntries(t *testing.T, h *harness, collection string) []map[string]any {
	t.Helper()
	docs, err := h.backend.Query(context.Background(), collection)
	require.NoError(t, err)
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Data())
	}
	return out
}

func TestUseAddDocument_AppliesBeforeSave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{BeforeSave: trimTitle})
	require.NoError(t, err)

	input := map[string]any{"title": "  Buy milk  ", "completed": false}
	out, err := add.Mutate(ctx, input)
	require.NoError(t, err)

	require.NotEmpty(t, out.ID())
	assert.Equal(t, record.Record{"id": out.ID(), "title": "Buy milk", "completed": false}, out)
	assert.Equal(t, "  Buy milk  ", input["title"], "input must not be mutated")

	stored, err := h.backend.Get(ctx, "todos", out.ID())
	require.NoError(t, err)
	require.True(t, stored.Exists())
	data := stored.Data()
	assert.Equal(t, "Buy milk", data["title"])
	assert.Equal(t, h.clock.Now(), data[hooks.FieldCreatedAt])
	assert.Equal(t, h.clock.Now(), data[hooks.FieldUpdatedAt])

	state := add.State()
	assert.True(t, state.IsSuccess())
	assert.Equal(t, out, state.Data)
	assert.Equal(t, 1, h.metrics.Count(h.metrics.Mutations, "add/todos/success"))
}

func TestUseAddDocument_RejectsInvalidData(t *testing.T) {
	h := newHarness(t)

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)

	_, err = add.Mutate(context.Background(), nil)
	assert.ErrorIs(t, err, hooks.ErrMissingData)

	_, err = add.Mutate(context.Background(), map[string]any{"id": "x", "title": "t"})
	assert.ErrorIs(t, err, record.ErrReservedField)

	sneaky, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{
		BeforeSave: func(d map[string]any) (map[string]any, error) {
			d["id"] = "forced"
			return d, nil
		},
	})
	require.NoError(t, err)
	_, err = sneaky.Mutate(context.Background(), map[string]any{"title": "t"})
	assert.ErrorIs(t, err, record.ErrReservedField)

	assert.Equal(t, 0, h.store.Calls("AddDoc"))
}

func TestUseAddDocument_BeforeSaveError(t *testing.T) {
	h := newHarness(t)
	rejected := errors.New("title required")

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{
		BeforeSave: func(map[string]any) (map[string]any, error) { return nil, rejected },
	})
	require.NoError(t, err)

	_, err = add.Mutate(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, rejected)
	assert.True(t, add.State().IsError())
	assert.Equal(t, 0, h.store.Calls("AddDoc"))
}

func TestUseAddDocument_InvalidatesCollection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	list, err := hooks.UseCollection(h.c, "todos", nil, hooks.ReadOptions{})
	require.NoError(t, err)
	before, err := list.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, before.Records, 2)

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)
	_, err = add.Mutate(ctx, map[string]any{"title": "Call mom"})
	require.NoError(t, err)

	after, err := list.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Records, 3)
	assert.Equal(t, 2, h.store.Calls("GetDocs"))
}

func TestUseAddDocument_SkipsInvalidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	list, err := hooks.UseCollection(h.c, "todos", nil, hooks.ReadOptions{})
	require.NoError(t, err)
	_, err = list.Fetch(ctx)
	require.NoError(t, err)

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{Invalidate: hooks.Bool(false)})
	require.NoError(t, err)
	_, err = add.Mutate(ctx, map[string]any{"title": "Call mom"})
	require.NoError(t, err)

	after, err := list.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Records, 2, "cached result should be served")
	assert.Equal(t, 1, h.store.Calls("GetDocs"))
}

func TestUseAddDocument_WritesAuditEntry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		di.WithAudit(audit.Config{Enabled: true}),
		di.WithActorResolver(func(context.Context) (string, bool) { return "user-7", true }),
	)

	logs, err := hooks.UseCollection(h.c, "todos_log", nil, hooks.ReadOptions{})
	require.NoError(t, err)
	empty, err := logs.Fetch(ctx)
	require.NoError(t, err)
	require.Empty(t, empty.Records)

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)
	out, err := add.Mutate(ctx, map[string]any{"title": "Call mom"})
	require.NoError(t, err)

	entries := logEntries(t, h, "todos_log")
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "CREATE", entry["action"])
	assert.Equal(t, out.ID(), entry["originalDocId"])
	assert.Equal(t, "user-7", entry["modifiedBy"])
	assert.Equal(t, map[string]any{"title": "Call mom"}, entry["payload"])
	assert.Equal(t, h.clock.Now(), entry["timestamp"])

	listed, err := logs.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, listed.Records, 1, "log collection should be invalidated after the audit write")
}

func TestUseAddDocument_CustomLogCollection(t *testing.T) {
	h := newHarness(t, di.WithAudit(audit.Config{
		ResolveLogCollection: func(c string) string { return "audit_" + c },
	}))

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{EnableLogging: hooks.Bool(true)})
	require.NoError(t, err)
	_, err = add.Mutate(context.Background(), map[string]any{"title": "x"})
	require.NoError(t, err)

	assert.Len(t, logEntries(t, h, "audit_todos"), 1)
	assert.Empty(t, logEntries(t, h, "todos_log"))
}

func TestUseAddDocument_AuditFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, di.WithAudit(audit.Config{Enabled: true}))
	h.store.FailWith(func(method, collection string) error {
		if method == "AddDoc" && collection == "todos_log" {
			return errors.New("log store down")
		}
		return nil
	})

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)

	out, err := add.Mutate(context.Background(), map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID())
	assert.Equal(t, 3, h.backend.Len("todos"))
	assert.Equal(t, 1, h.metrics.Count(h.metrics.Audits, "todos_log"))
	assert.NotEmpty(t, h.logger.Entries("warn"))
}

func TestUseAddDocument_StoreError(t *testing.T) {
	var gotContext string
	h := newHarness(t, di.WithErrorHandler(func(_ error, context string) { gotContext = context }))
	h.store.FailWith(func(method, _ string) error {
		if method == "AddDoc" {
			return docstore.ErrUnavailable
		}
		return nil
	})

	add, err := hooks.UseAddDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)

	_, err = add.Mutate(context.Background(), map[string]any{"title": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrUnavailable)
	assert.Equal(t, "add:todos", gotContext)
	assert.Equal(t, 1, h.store.Calls("AddDoc"), "mutations are never retried")
	assert.Equal(t, 1, h.metrics.Count(h.metrics.Mutations, "add/todos/error"))
}

func TestUseUpdateDocument_MergesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	doc, err := hooks.UseDocument(h.c, "todos", "t1", hooks.ReadOptions{})
	require.NoError(t, err)
	_, err = doc.Fetch(ctx)
	require.NoError(t, err)

	list, err := hooks.UseCollection(h.c, "todos", nil, hooks.ReadOptions{})
	require.NoError(t, err)
	_, err = list.Fetch(ctx)
	require.NoError(t, err)

	update, err := hooks.UseUpdateDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)
	out, err := update.Mutate(ctx, record.Record{"id": "t1", "completed": true})
	require.NoError(t, err)
	assert.Equal(t, record.Record{"id": "t1", "completed": true}, out)

	fresh, err := doc.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, fresh["completed"])
	assert.Equal(t, "Buy milk", fresh["title"])
	assert.Equal(t, h.clock.Now(), fresh[hooks.FieldUpdatedAt])
	assert.Equal(t, 2, h.store.Calls("GetDoc"))

	_, err = list.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.Calls("GetDocs"))
}

func TestUseUpdateDocument_PreviousData(t *testing.T) {
	tests := []struct {
		name         string
		preReadFails bool
		wantPrevious bool
	}{
		{name: "pre-read succeeds", wantPrevious: true},
		{name: "pre-read fails", preReadFails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, di.WithAudit(audit.Config{Enabled: true, IncludePreviousData: true}))
			if tt.preReadFails {
				h.store.FailWith(func(method, _ string) error {
					if method == "GetDoc" {
						return errors.New("read failed")
					}
					return nil
				})
			}

			update, err := hooks.UseUpdateDocument(h.c, "todos", hooks.WriteOptions{})
			require.NoError(t, err)
			_, err = update.Mutate(context.Background(), record.Record{"id": "t1", "completed": true})
			require.NoError(t, err)

			entries := logEntries(t, h, "todos_log")
			require.Len(t, entries, 1)
			assert.Equal(t, "UPDATE", entries[0]["action"])
			assert.Equal(t, map[string]any{"completed": true}, entries[0]["payload"])

			previous, ok := entries[0]["previousData"]
			assert.Equal(t, tt.wantPrevious, ok)
			if tt.wantPrevious {
				assert.Equal(t, map[string]any{"title": "Buy milk", "completed": false}, previous)
			}
		})
	}
}

func TestUseUpdateDocument_SkipsPreReadWithoutPreviousData(t *testing.T) {
	h := newHarness(t, di.WithAudit(audit.Config{Enabled: true}))

	update, err := hooks.UseUpdateDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)
	_, err = update.Mutate(context.Background(), record.Record{"id": "t1", "completed": true})
	require.NoError(t, err)

	assert.Equal(t, 0, h.store.Calls("GetDoc"))
	entries := logEntries(t, h, "todos_log")
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "previousData")
	assert.Nil(t, entries[0]["modifiedBy"])
}

func TestUseUpdateDocument_Errors(t *testing.T) {
	h := newHarness(t)

	update, err := hooks.UseUpdateDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)

	_, err = update.Mutate(context.Background(), record.Record{"completed": true})
	assert.ErrorIs(t, err, record.ErrMissingID)

	_, err = update.Mutate(context.Background(), record.Record{"id": "missing", "completed": true})
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	var opErr *hooks.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "update:todos", opErr.Context())
}

func TestUseDeleteDocument_LogsDeletedData(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, di.WithAudit(audit.Config{Enabled: true}))

	list, err := hooks.UseCollection(h.c, "todos", nil, hooks.ReadOptions{})
	require.NoError(t, err)
	_, err = list.Fetch(ctx)
	require.NoError(t, err)

	del, err := hooks.UseDeleteDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)
	id, err := del.Mutate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", id)

	entries := logEntries(t, h, "todos_log")
	require.Len(t, entries, 1)
	assert.Equal(t, "DELETE", entries[0]["action"])
	assert.Equal(t, map[string]any{"title": "Buy milk", "completed": false}, entries[0]["deletedData"])

	after, err := list.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, after.Records, 1)
	assert.Equal(t, "t2", after.Records[0].ID())
}

func TestUseDeleteDocument_PreReadFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.FailWith(func(method, _ string) error {
		if method == "GetDoc" {
			return errors.New("read failed")
		}
		return nil
	})

	del, err := hooks.UseDeleteDocument(h.c, "todos", hooks.WriteOptions{EnableLogging: hooks.Bool(true)})
	require.NoError(t, err)

	id, err := del.Mutate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", id)

	snap, err := h.backend.Get(ctx, "todos", "t1")
	require.NoError(t, err)
	assert.False(t, snap.Exists())

	entries := logEntries(t, h, "todos_log")
	require.Len(t, entries, 1)
	assert.Equal(t, "DELETE", entries[0]["action"])
	assert.Equal(t, "t1", entries[0]["originalDocId"])
	deleted, ok := entries[0]["deletedData"]
	assert.True(t, ok)
	assert.Nil(t, deleted)
}

func TestUseDeleteDocument_MissingID(t *testing.T) {
	h := newHarness(t)

	del, err := hooks.UseDeleteDocument(h.c, "todos", hooks.WriteOptions{})
	require.NoError(t, err)

	_, err = del.Mutate(context.Background(), "")
	assert.ErrorIs(t, err, record.ErrMissingID)
	assert.Equal(t, 0, h.store.Calls("DeleteDoc"))
}

func TestWriteHooks_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := hooks.UseAddDocument(nil, "todos", hooks.WriteOptions{})
	assert.ErrorIs(t, err, di.ErrNoConfig)
	_, err = hooks.UseUpdateDocument(nil, "todos", hooks.WriteOptions{})
	assert.ErrorIs(t, err, di.ErrNoConfig)
	_, err = hooks.UseDeleteDocument(nil, "todos", hooks.WriteOptions{})
	assert.ErrorIs(t, err, di.ErrNoConfig)

	_, err = hooks.UseAddDocument(h.c, "", hooks.WriteOptions{})
	assert.ErrorIs(t, err, hooks.ErrInvalidCollection)
}
