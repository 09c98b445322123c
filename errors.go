package docparse

import "errors"

var (
	// ErrDocumentTooLarge is returned when a document exceeds the
	// configured size limit.
	ErrDocumentTooLarge = errors.New("docparse: document exceeds maximum size")

	// ErrEmptyDocument is returned for zero-length input.
	ErrEmptyDocument = errors.New("docparse: empty document")
)
