package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentService manages a user's uploaded documents.
// Every operation is scoped to userID; other users' documents are not found.
type DocumentService interface {
	// Ingest extracts, chunks, embeds and indexes an upload.
	// Either the document, its chunks and index entries are all committed,
	// or none of them are.
	Ingest(ctx context.Context, req IngestRequest) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, userID, documentID string) (*domain.Document, error)

	// List returns a page of the user's documents.
	List(ctx context.Context, userID string, opts ListOptions) (*domain.DocumentPage, error)

	// GetDetails returns document metadata for display.
	GetDetails(ctx context.Context, userID, documentID string) (*DocumentDetails, error)

	// Delete removes a document and its chunks. Index entries are kept.
	Delete(ctx context.Context, userID, documentID string) error
}

// IngestRequest is an upload to ingest.
type IngestRequest struct {
	// OwnerID is the uploading user.
	OwnerID string

	// Filename is the upload name; its extension selects the extractor when
	// MIMEType is empty.
	Filename string

	// MIMEType is the declared content type.
	MIMEType string

	// Data is the file content.
	Data []byte

	// Metadata holds extra key-value pairs stored with the document.
	Metadata map[string]string
}

// ListOptions pages a document listing.
type ListOptions struct {
	// Query filters by filename or content substring.
	Query string

	// Page is 1-based. Defaults to 1.
	Page int

	// Limit is the page size. Defaults to 10.
	Limit int
}

// DocumentDetails provides a display view of a document.
type DocumentDetails struct {
	Document   domain.Document
	ChunkCount int
}
