package hooks

import "errors"

// ErrInvalidCollection is returned when a hook is built without a
// collection name.
var ErrInvalidCollection = errors.New("hooks: collection name is required")

// Operation names used in error contexts, spans and metrics.
const (
	OpCollection = "collection"
	OpDocument   = "document"
	OpAdd        = "add"
	OpUpdate     = "update"
	OpDelete     = "delete"
)

// OperationError is the terminal error of a hook. It names the operation and
// collection and unwraps to the store error.
type OperationError struct {
	Op         string
	Collection string
	Err        error
}

func (e *OperationError) Error() string {
	return e.Context() + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error { return e.Err }

// Context returns "op:collection", the string passed to the error handler.
func (e *OperationError) Context() string {
	return e.Op + ":" + e.Collection
}
