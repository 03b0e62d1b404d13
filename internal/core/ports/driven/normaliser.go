package driven

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// Normaliser extracts text from an uploaded file.
// Each normaliser handles specific MIME types (e.g., PDF, plain text).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the document text. An empty Content is not an
	// error here; the ingestion service decides what empty means.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document has Content populated. Scope and ID are assigned by the caller.
	Document domain.Document
}
