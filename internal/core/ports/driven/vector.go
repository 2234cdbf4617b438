package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// VectorIndex is the persistent chunk embedding index.
// User scoping is not its concern; the retriever filters hits by owner.
//
// Individual entries cannot be deleted. Vectors of deleted documents stay
// in the index until it is rebuilt.
type VectorIndex interface {
	// Load returns the current snapshot of a previously persisted index.
	// ok is false when no index has ever been created (first use).
	// A persisted index that cannot be read returns domain.ErrIndexCorrupt.
	Load(ctx context.Context) (snapshot VectorSnapshot, ok bool, err error)

	// AddDocuments creates the index from entries when none exists, otherwise
	// appends to it. Entries are durable before it returns.
	// Concurrent calls are serialised.
	AddDocuments(ctx context.Context, entries []domain.VectorEntry) error

	// Close releases resources.
	Close() error
}

// VectorSnapshot is an immutable view of the index at a point in time.
// Safe for concurrent use; later writes never alter it.
type VectorSnapshot interface {
	// SimilaritySearch returns up to k entries ordered by descending cosine
	// similarity, ties broken by insertion order. k must be at least 1.
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of entries.
	Len() int

	// Dimension returns the vector size of the index.
	Dimension() int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Entry is the matched index record (embedding omitted).
	Entry domain.VectorEntry

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64
}
