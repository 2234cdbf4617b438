package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for durable storage.
type DocumentStore interface {
	// SaveDocument stores a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// FindDocuments returns the documents matching the filter, newest first,
	// together with the total match count before Offset/Limit.
	FindDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, int, error)

	// DocumentIDs returns the IDs of every document owned by ownerID.
	DocumentIDs(ctx context.Context, ownerID string) ([]string, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// InsertChunks stores chunks, generating IDs for chunks without one.
	// Returns the stored chunks in input order.
	InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error)

	// GetChunks retrieves all chunks for a document in position order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteChunks removes every chunk of a document.
	DeleteChunks(ctx context.Context, documentID string) error
}
