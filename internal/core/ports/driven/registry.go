package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for an upload.
type NormaliserRegistry interface {
	// Normalise extracts text using the highest priority matching normaliser.
	// Returns domain.ErrUnsupportedType when none matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
