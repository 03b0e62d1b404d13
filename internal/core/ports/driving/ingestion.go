package driving

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// IngestResult summarises one ingested upload.
type IngestResult struct {
	DocumentID string
	Scope      domain.Scope

	// ChunksAdded is the number of vectors appended to the index.
	ChunksAdded int
}

// IngestionService turns uploads into indexed, stored chunks.
type IngestionService interface {
	// IngestUserRecord ingests a personal medical record into the user's partition.
	IngestUserRecord(ctx context.Context, userID string, raw *domain.RawDocument) (*IngestResult, error)

	// IngestGlobalDocument ingests a reference document into the global partition.
	IngestGlobalDocument(ctx context.Context, diseaseName string, raw *domain.RawDocument) (*IngestResult, error)
}
