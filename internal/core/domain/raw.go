package domain

// RawDocument is an upload before text extraction.
type RawDocument struct {
	// OwnerID is the uploading user.
	OwnerID string

	// Filename is the original upload name.
	Filename string

	// MIMEType is the content type (e.g., "application/pdf").
	// When empty it is derived from the filename extension.
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains caller supplied key-value pairs.
	Metadata map[string]string
}

// MaxUploadSize is the largest upload accepted for ingestion (100 MiB).
const MaxUploadSize = 100 << 20
