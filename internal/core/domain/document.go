package domain

import "time"

// Well-known document metadata keys.
const (
	// MetaFileType is the upload's file extension without the dot (pdf, docx, txt).
	MetaFileType = "file_type"

	// MetaFileSize is the upload's size in bytes, formatted as a decimal string.
	MetaFileSize = "file_size"

	// MetaMIMEType is the content type the document was extracted as.
	MetaMIMEType = "mime_type"

	// MetaFormat names the extractor that produced the text.
	MetaFormat = "format"
)

// Document represents an uploaded document after text extraction.
// Documents are immutable once stored; the only mutation is deletion.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the user that uploaded the document.
	// A document is visible to exactly one user.
	OwnerID string

	// Filename is the original upload name (e.g. "invoice.txt").
	Filename string

	// Content is the full extracted text before chunking.
	Content string

	// Metadata holds file_type, file_size and extractor details.
	Metadata map[string]string

	// CreatedAt is when the document was stored.
	CreatedAt time.Time
}

// Chunk represents a retrievable unit within a document.
// Positions are contiguous from zero and unique within a document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the 0-based sequence index within the document.
	Position int

	// Embedding is the vector representation, produced once at ingestion.
	Embedding []float32
}

// DocumentFilter narrows document lookups.
type DocumentFilter struct {
	// OwnerID restricts results to a single user. Required.
	OwnerID string

	// Query matches a case-insensitive substring of filename or content.
	Query string

	// Offset is the number of documents to skip.
	Offset int

	// Limit caps the number of documents returned (0 = no limit).
	Limit int
}

// DocumentPage is one page of a document listing.
type DocumentPage struct {
	Documents []Document
	Total     int
	Page      int
	Pages     int
}
