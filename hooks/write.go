package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-docquery/audit"
	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/goliatone/go-docquery/record"
	"go.opentelemetry.io/otel/attribute"
)

// Timestamp fields stamped by the store on every write.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// ErrMissingData is returned by the add hook when called without fields.
var ErrMissingData = errors.New("hooks: document data is required")

type writer struct {
	c          *di.Container
	collection string
	opts       WriteOptions
}

func newWriter(c *di.Container, collection string, opts WriteOptions) (writer, error) {
	if err := di.Ensure(c); err != nil {
		return writer{}, err
	}
	if strings.TrimSpace(collection) == "" {
		return writer{}, ErrInvalidCollection
	}
	return writer{c: c, collection: collection, opts: opts}, nil
}

// UseAddDocument builds the create mutation for collection. The result is
// the saved fields (after BeforeSave) plus the new id; the server stamped
// createdAt and updatedAt are not part of it.
func UseAddDocument(c *di.Container, collection string, opts WriteOptions) (*Mutation[map[string]any, record.Record], error) {
	w, err := newWriter(c, collection, opts)
	if err != nil {
		return nil, err
	}

	return NewMutation(func(ctx context.Context, data map[string]any) (record.Record, error) {
		var out record.Record
		err := w.run(ctx, OpAdd, nil, func(ctx context.Context) error {
			if data == nil {
				return ErrMissingData
			}
			if err := record.Validate(data); err != nil {
				return err
			}
			payload, err := w.transform(data)
			if err != nil {
				return err
			}

			stamped := docstore.CloneData(payload)
			ts := docstore.ServerTimestamp()
			stamped[FieldCreatedAt] = ts
			stamped[FieldUpdatedAt] = ts

			id, err := w.c.Store().AddDoc(ctx, w.collection, stamped)
			if err != nil {
				return err
			}
			out = record.New(id, payload)

			if w.opts.invalidate() {
				w.invalidateCollection(ctx, w.collection)
			}
			if w.opts.logging(w.c) {
				w.audit(ctx, audit.Entry{OriginalDocID: id, Action: audit.ActionCreate, Payload: payload}, w.opts.invalidate())
			}
			return nil
		})
		return out, err
	}), nil
}

// UseUpdateDocument builds the update mutation for collection. The input
// record carries the id plus the fields to merge.
func UseUpdateDocument(c *di.Container, collection string, opts WriteOptions) (*Mutation[record.Record, record.Record], error) {
	w, err := newWriter(c, collection, opts)
	if err != nil {
		return nil, err
	}

	return NewMutation(func(ctx context.Context, in record.Record) (record.Record, error) {
		var out record.Record
		err := w.run(ctx, OpUpdate, []attribute.KeyValue{attribute.String("docquery.id", in.ID())}, func(ctx context.Context) error {
			id, fields, err := record.SplitID(in)
			if err != nil {
				return err
			}
			payload, err := w.transform(fields)
			if err != nil {
				return err
			}

			logging := w.opts.logging(w.c)
			var previous map[string]any
			if logging && w.c.Audit().IncludePreviousData {
				previous = w.preRead(ctx, id)
			}

			stamped := docstore.CloneData(payload)
			stamped[FieldUpdatedAt] = docstore.ServerTimestamp()
			if err := w.c.Store().UpdateDoc(ctx, w.collection, id, stamped); err != nil {
				return err
			}
			out = record.New(id, payload)

			w.invalidateCollection(ctx, w.collection)
			w.invalidateDocument(ctx, id)
			if logging {
				w.audit(ctx, audit.Entry{OriginalDocID: id, Action: audit.ActionUpdate, Payload: payload, PreviousData: previous}, true)
			}
			return nil
		})
		return out, err
	}), nil
}

// UseDeleteDocument builds the delete mutation for collection. The document
// is read first for the audit entry; a failed read never blocks the delete.
func UseDeleteDocument(c *di.Container, collection string, opts WriteOptions) (*Mutation[string, string], error) {
	w, err := newWriter(c, collection, opts)
	if err != nil {
		return nil, err
	}

	return NewMutation(func(ctx context.Context, id string) (string, error) {
		err := w.run(ctx, OpDelete, []attribute.KeyValue{attribute.String("docquery.id", id)}, func(ctx context.Context) error {
			if id == "" {
				return record.ErrMissingID
			}

			deleted := w.preRead(ctx, id)
			if err := w.c.Store().DeleteDoc(ctx, w.collection, id); err != nil {
				return err
			}

			w.invalidateCollection(ctx, w.collection)
			w.invalidateDocument(ctx, id)
			if w.opts.logging(w.c) {
				w.audit(ctx, audit.Entry{OriginalDocID: id, Action: audit.ActionDelete, DeletedData: deleted}, true)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		return id, nil
	}), nil
}

func (w writer) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	started := time.Now()
	ctx, span := startSpan(ctx, w.c, op, w.collection, attrs...)
	err := fn(ctx)
	endSpan(span, err)
	w.c.Metrics().MutationCompleted(op, w.collection, time.Since(started), err)
	logTiming(w.c, w.opts.Debug, op, w.collection, started, err)
	if err != nil {
		return fail(w.c, op, w.collection, err)
	}
	return nil
}

// transform copies data and applies BeforeSave. The result may not carry
// the reserved id field.
func (w writer) transform(data map[string]any) (map[string]any, error) {
	payload := docstore.CloneData(data)
	if payload == nil {
		payload = map[string]any{}
	}
	if w.opts.BeforeSave != nil {
		var err error
		if payload, err = w.opts.BeforeSave(payload); err != nil {
			return nil, fmt.Errorf("hooks: before save: %w", err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}
	if err := record.Validate(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// preRead returns the current fields of id, or nil when the read fails or
// the document does not exist.
func (w writer) preRead(ctx context.Context, id string) map[string]any {
	snap, err := w.c.Store().GetDoc(ctx, w.collection, id)
	if err != nil {
		w.c.Logger().Warn("hooks: could not read document before write",
			"collection", w.collection, "id", id, "error", err)
		return nil
	}
	if !snap.Exists() {
		return nil
	}
	return snap.Data()
}

// audit writes entry and, when invalidate is set, drops the log
// collection's cached reads.
func (w writer) audit(ctx context.Context, entry audit.Entry, invalidate bool) {
	logCollection := w.c.Audit().LogCollection(w.collection)
	w.c.AuditWriter().Write(ctx, logCollection, entry)
	if invalidate {
		w.invalidateCollection(ctx, logCollection)
	}
}

func (w writer) invalidateCollection(ctx context.Context, collection string) {
	if err := InvalidateCollection(ctx, w.c, collection); err != nil {
		w.c.Logger().Warn("hooks: failed to invalidate collection", "collection", collection, "error", err)
	}
}

func (w writer) invalidateDocument(ctx context.Context, id string) {
	if err := InvalidateDocument(ctx, w.c, w.collection, id); err != nil {
		w.c.Logger().Warn("hooks: failed to invalidate document", "collection", w.collection, "id", id, "error", err)
	}
}
