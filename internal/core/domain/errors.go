package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap their own failures with these so callers can classify
// them with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles the uploaded file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbedding indicates the embedding call failed.
	// Retrieval degrades to an empty result; ingestion aborts.
	ErrEmbedding = errors.New("embedding failed")

	// ErrExtractionEmpty indicates no text could be recovered from an upload.
	ErrExtractionEmpty = errors.New("no text could be extracted")

	// ErrGeneration indicates the language model call failed.
	ErrGeneration = errors.New("generation failed")

	// ErrStorage indicates a relational store operation failed.
	ErrStorage = errors.New("storage failure")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a provider failure worth retrying, such as a 5xx response.
	ErrTransient = errors.New("transient provider failure")
)
