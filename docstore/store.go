package docstore

import (
	"context"

	"github.com/google/uuid"
)

// Backend is the server side of a Client.
//
// Get returns a MissingSnapshot, not an error, for absent documents.
// Create and Update resolve ServerTimestamp sentinels and return the stored
// document. Update merges top-level fields and fails with ErrNotFound when
// the document is absent. Delete of an absent document is a no-op.
type Backend interface {
	Query(ctx context.Context, collection string, constraints ...Constraint) ([]*DocumentSnapshot, error)
	Get(ctx context.Context, collection, id string) (*DocumentSnapshot, error)
	Create(ctx context.Context, collection string, data map[string]any) (*DocumentSnapshot, error)
	Update(ctx context.Context, collection, id string, data map[string]any) (*DocumentSnapshot, error)
	Delete(ctx context.Context, collection, id string) error
}

// Store is the three-mode client contract used by the hooks.
type Store interface {
	GetDocs(ctx context.Context, collection string, constraints ...Constraint) (*QuerySnapshot, error)
	GetDocsFromServer(ctx context.Context, collection string, constraints ...Constraint) (*QuerySnapshot, error)
	GetDocsFromCache(ctx context.Context, collection string, constraints ...Constraint) (*QuerySnapshot, error)

	GetDoc(ctx context.Context, collection, id string) (*DocumentSnapshot, error)
	GetDocFromServer(ctx context.Context, collection, id string) (*DocumentSnapshot, error)
	GetDocFromCache(ctx context.Context, collection, id string) (*DocumentSnapshot, error)

	AddDoc(ctx context.Context, collection string, data map[string]any) (string, error)
	UpdateDoc(ctx context.Context, collection, id string, data map[string]any) error
	DeleteDoc(ctx context.Context, collection, id string) error
}

// NewID returns a time-ordered document id, falling back to a random one.
func NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
