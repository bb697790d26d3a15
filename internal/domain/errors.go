package domain

import "errors"

var (
	// ErrIndexNotFound signals that the index/chunk artifact pair for a
	// document is missing or misaligned. Distinct from an empty result set.
	ErrIndexNotFound = errors.New("index not found")
	// ErrSummaryNotFound signals a missing cached summary artifact.
	ErrSummaryNotFound = errors.New("summary not found")
	// ErrDocumentNotFound signals a missing uploaded document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorCountMismatch signals that the embedding count does not match
	// the chunk count at build time. Fatal for that build.
	ErrVectorCountMismatch = errors.New("vector count mismatch")
	// ErrInvalidInput signals a caller error (bad id, empty query, bad body).
	ErrInvalidInput = errors.New("invalid input")
	// ErrParserUnavailable signals that the structural parsing service
	// cannot be reached or returned an unusable response.
	ErrParserUnavailable = errors.New("document parser unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
)
