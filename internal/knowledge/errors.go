package knowledge

import "errors"

// Sentinel errors for store operations. These are part of the Store's
// public API and should be checked with errors.Is().
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrPersistence indicates a store read or write failed, including a
	// failed atomic insert. The wrapped cause carries the detail.
	ErrPersistence = errors.New("persistence failure")
)
