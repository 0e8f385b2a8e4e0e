package docstore

import "errors"

var (
	// ErrNotFound is returned when a mutation targets a missing document.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrNotInCache is returned by cache reads for documents never mirrored.
	ErrNotInCache = errors.New("docstore: document not in local cache")
	// ErrUnavailable is returned by backends that cannot be reached.
	ErrUnavailable = errors.New("docstore: backend unavailable")
	// ErrInvalidQuery is returned for invalid constraint combinations.
	ErrInvalidQuery = errors.New("docstore: invalid query")
	// ErrInvalidArgument is returned for empty collection names or ids.
	ErrInvalidArgument = errors.New("docstore: invalid argument")
)
