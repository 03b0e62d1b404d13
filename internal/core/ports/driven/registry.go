package driven

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for an upload.
type NormaliserRegistry interface {
	// Normalise extracts text using the highest-priority normaliser for
	// the upload's MIME type. Returns domain.ErrUnsupportedType when none match.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
