package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCatalog signals catalog data that violates entity invariants.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRetrievalUnavailable signals that the embedding provider or the entity store
	// could not be reached (including timeouts). Callers may retry the whole search.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrMergeInconsistency signals a violated merge invariant (programming error).
	ErrMergeInconsistency = errors.New("merge inconsistency")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a text completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrTransient marks provider failures worth retrying (rate limits, 5xx, network).
	ErrTransient = errors.New("transient failure")
)

// IsTransient reports whether err is marked as a transient provider failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Unavailable wraps err with ErrRetrievalUnavailable unless it already carries it.
func Unavailable(op string, err error) error {
	if errors.Is(err, ErrRetrievalUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRetrievalUnavailable, err)
}
