// Package audit writes mutation log entries into a derived log collection.
//
// Writes are best effort. A failed write is logged as a warning and never
// reaches the caller of the mutation that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/logging"
)

// Action is the kind of mutation an Entry describes.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// LogSuffix is appended to a collection name to derive its log collection.
const LogSuffix = "_log"

// DefaultLogCollection returns "<collection>_log".
func DefaultLogCollection(collection string) string {
	return collection + LogSuffix
}

// Config controls audit logging for write hooks.
type Config struct {
	Enabled              bool
	ResolveLogCollection func(collection string) string
	IncludePreviousData  bool
}

// LogCollection resolves the log collection for collection.
func (c Config) LogCollection(collection string) string {
	if c.ResolveLogCollection != nil {
		if name := c.ResolveLogCollection(collection); name != "" {
			return name
		}
	}
	return DefaultLogCollection(collection)
}

// ActorResolver returns the id of the authenticated actor, false when there
// is none.
type ActorResolver func(ctx context.Context) (string, bool)

// Entry is one audit record. Payload is set for creates and updates,
// PreviousData for updates when captured, DeletedData for deletes.
type Entry struct {
	OriginalDocID string
	Action        Action
	Payload       map[string]any
	PreviousData  map[string]any
	DeletedData   map[string]any
}

// Fields builds the stored document. modifiedBy is nil without an actor and
// timestamp is resolved by the store.
func (e Entry) Fields(actor *string, modifiedOn time.Time) map[string]any {
	fields := map[string]any{
		"originalDocId": e.OriginalDocID,
		"action":        string(e.Action),
		"modifiedOn":    modifiedOn.UTC(),
		"timestamp":     docstore.ServerTimestamp(),
	}
	if actor != nil {
		fields["modifiedBy"] = *actor
	} else {
		fields["modifiedBy"] = nil
	}

	switch e.Action {
	case ActionCreate:
		fields["payload"] = docstore.CloneData(e.Payload)
	case ActionUpdate:
		fields["payload"] = docstore.CloneData(e.Payload)
		if e.PreviousData != nil {
			fields["previousData"] = docstore.CloneData(e.PreviousData)
		}
	case ActionDelete:
		if e.DeletedData != nil {
			fields["deletedData"] = docstore.CloneData(e.DeletedData)
		} else {
			fields["deletedData"] = nil
		}
	}
	return fields
}

// Writer persists entries through a docstore.Store.
type Writer struct {
	store     docstore.Store
	actor     ActorResolver
	logger    logging.Logger
	now       func() time.Time
	onFailure func(logCollection string, err error)
}

// Option configures a Writer.
type Option func(*Writer)

func WithActorResolver(r ActorResolver) Option {
	return func(w *Writer) { w.actor = r }
}

func WithLogger(logger logging.Logger) Option {
	return func(w *Writer) { w.logger = logging.OrNoOp(logger) }
}

func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithFailureHook is called after a failed write has been logged.
func WithFailureHook(fn func(logCollection string, err error)) Option {
	return func(w *Writer) { w.onFailure = fn }
}

func NewWriter(store docstore.Store, opts ...Option) *Writer {
	w := &Writer{
		store:  store,
		logger: logging.NoOpLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write stores entry in logCollection and returns the new log document id.
// Failures are logged and reported as ok=false; they never return an error.
func (w *Writer) Write(ctx context.Context, logCollection string, entry Entry) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("audit: log write panicked", "collection", logCollection, "action", entry.Action, "panic", r)
			w.failed(logCollection, nil)
			id, ok = "", false
		}
	}()

	var actor *string
	if w.actor != nil {
		if a, found := w.actor(ctx); found && a != "" {
			actor = &a
		}
	}
	if actor == nil {
		w.logger.Warn("audit: no authenticated actor, writing entry without modifiedBy",
			"collection", logCollection, "action", entry.Action, "docId", entry.OriginalDocID)
	}

	id, err := w.store.AddDoc(ctx, logCollection, entry.Fields(actor, w.now()))
	if err != nil {
		w.logger.Warn("audit: failed to write log entry",
			"collection", logCollection, "action", entry.Action, "docId", entry.OriginalDocID, "error", err)
		w.failed(logCollection, err)
		return "", false
	}
	return id, true
}

func (w *Writer) failed(logCollection string, err error) {
	if w.onFailure != nil {
		w.onFailure(logCollection, err)
	}
}
