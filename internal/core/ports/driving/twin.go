package driving

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// DigitalTwinService derives the risk signal from a user's chat history.
type DigitalTwinService interface {
	// Report loads the user's history and summarises it. Generation
	// failures never surface here; only storage failures are returned.
	Report(ctx context.Context, userID string) (*domain.TwinReport, error)
}
