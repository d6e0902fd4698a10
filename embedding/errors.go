package embedding

import "errors"

var (
	// ErrBackendRequired is returned when no embedding backend is provided.
	ErrBackendRequired = errors.New("embedding backend required")

	// ErrEmbeddingFailed is returned when the backend keeps failing after retries.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrEmbeddingCountMismatch is returned when the backend returns a
	// different number of vectors than texts it was given.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
