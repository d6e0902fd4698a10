package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a snapshot repository is not provided.
	ErrRepositoryRequired = errors.New("snapshot repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidRecord is returned when an input record cannot be decoded or
	// fails validation.
	ErrInvalidRecord = errors.New("invalid recipe record")
)
