package storage

import "errors"

// ErrNotFound is returned when a document is not in the journal.
var ErrNotFound = errors.New("document not found")
