package storage

import "errors"

// Error kinds returned by the Store. Match them with errors.Is; the
// wrapped cause carries the driver detail.
var (
	// ErrConnection means the engine could not be reached, rejected the
	// credentials, or the handle is closed.
	ErrConnection = errors.New("connection error")

	// ErrSchema means the files table could not be created or verified.
	ErrSchema = errors.New("schema error")

	// ErrWrite means an insert or delete was rejected.
	ErrWrite = errors.New("write error")

	// ErrNotFound means no record has the requested id.
	ErrNotFound = errors.New("not found")
)
