package driving

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// DefaultHistoryLimit bounds chat history listings.
const DefaultHistoryLimit = 50

// HistoryService manages the per-user chat log.
type HistoryService interface {
	// SaveChat appends an exchange and returns the stored entry.
	SaveChat(ctx context.Context, entry domain.ChatEntry) (*domain.ChatEntry, error)

	// History returns at most limit entries, newest first.
	// limit <= 0 uses DefaultHistoryLimit.
	History(ctx context.Context, userID string, limit int) ([]domain.ChatEntry, error)
}
