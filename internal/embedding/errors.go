package embedding

import "errors"

var (
	// ErrProvider wraps any failure returned by the embedding provider.
	ErrProvider = errors.New("embedding provider failure")

	// ErrEmptyDocument is returned when aggregating zero embeddings.
	ErrEmptyDocument = errors.New("empty document: no embeddings to aggregate")

	// ErrDimensionMismatch is returned when a vector does not have the expected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrTokenBudgetExceeded is returned when a chunk is larger than the provider accepts.
	ErrTokenBudgetExceeded = errors.New("chunk exceeds token budget")
)
