package domain

import "errors"

var (
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexUnavailable signals a vector index connectivity or query failure.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrRerankFailed signals a rerank backend failure. It never crosses the tool boundary.
	ErrRerankFailed = errors.New("rerank failed")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidDocument signals a source document that cannot be ingested.
	ErrInvalidDocument = errors.New("invalid document")
)
