package domain

import (
	"context"
	"errors"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an upload with no matching extractor.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Retrieval pipeline errors.

	// ErrChunking indicates the source text could not be split.
	// Fatal to the ingestion it occurred in.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbeddingFailure indicates the embedding call failed or returned
	// an unusable vector. Retryable by the caller.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrIndexUnavailable indicates no vector index has been persisted yet.
	// This is a valid empty state, not a failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrIndexCorrupt indicates a persisted index could not be read.
	// Requires operator intervention.
	ErrIndexCorrupt = errors.New("vector index corrupt")

	// ErrIndexDimension indicates vectors whose size differs from the
	// persisted index, usually after the embedding model changed.
	ErrIndexDimension = errors.New("embedding dimension does not match the index")

	// ErrScopeViolation indicates an indexed chunk belongs to no known document.
	// Such entries are dropped and logged, never returned.
	ErrScopeViolation = errors.New("scope violation")

	// ErrModelInvocation indicates the language model call failed.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrStorage indicates the document or session store failed.
	ErrStorage = errors.New("storage failure")
)

// Category is the stable, user-facing reduction of an error.
// Drivers render categories only; wrapped detail stays in logs.
type Category struct {
	// Code is a machine-readable identifier.
	Code string

	// Message is safe to show to end users.
	Message string

	// Status is the matching HTTP status code.
	Status int
}

// Error categories, most specific first.
var (
	CategoryNotFound         = Category{Code: "not_found", Message: "The requested resource was not found.", Status: 404}
	CategoryInvalidInput     = Category{Code: "invalid_input", Message: "The request was invalid.", Status: 400}
	CategoryUnsupportedType  = Category{Code: "unsupported_type", Message: "This file type is not supported.", Status: 415}
	CategoryChunking         = Category{Code: "chunking_failed", Message: "The document text could not be processed.", Status: 422}
	CategoryEmbedding        = Category{Code: "embedding_failed", Message: "Embedding service failed. Please try again.", Status: 503}
	CategoryModel            = Category{Code: "model_failed", Message: "The language model did not respond. Please try again.", Status: 502}
	CategoryTimeout          = Category{Code: "timeout", Message: "The request timed out.", Status: 504}
	CategoryNotConfigured    = Category{Code: "not_configured", Message: "The AI provider is not configured.", Status: 503}
	CategoryIndexUnavailable = Category{Code: "index_unavailable", Message: "No documents have been indexed yet.", Status: 409}
	CategoryIndexMismatch    = Category{Code: "index_mismatch", Message: "The embedding model does not match the indexed documents.", Status: 409}
	CategoryInternal         = Category{Code: "internal", Message: "An internal error occurred.", Status: 500}
)

// Categorise reduces err to its stable Category.
// Store, index corruption and unknown errors all map to CategoryInternal.
func Categorise(err error) Category {
	switch {
	case err == nil:
		return Category{}
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrIndexDimension):
		return CategoryIndexMismatch
	case errors.Is(err, ErrInvalidInput):
		return CategoryInvalidInput
	case errors.Is(err, ErrUnsupportedType):
		return CategoryUnsupportedType
	case errors.Is(err, ErrChunking):
		return CategoryChunking
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, ErrEmbeddingFailure):
		return CategoryEmbedding
	case errors.Is(err, ErrModelInvocation):
		return CategoryModel
	case errors.Is(err, ErrEmbeddingUnavailable), errors.Is(err, ErrLLMUnavailable):
		return CategoryNotConfigured
	case errors.Is(err, ErrIndexUnavailable):
		return CategoryIndexUnavailable
	default:
		return CategoryInternal
	}
}
