package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Normaliser extracts text from uploads of specific MIME types.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50, fallbacks 1-9.
	Priority() int

	// Normalise extracts the text of a raw upload into a document.
	// Malformed input returns an error wrapping domain.ErrChunking.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Normalisation only produces a Document with Content; chunking is handled
// by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content populated.
	Document domain.Document
}
