package driving

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// ChatService answers a user's question using retrieved context.
type ChatService interface {
	// Chat retrieves user and global context, assembles the prompt and
	// generates an answer. Generation failures are returned wrapped in
	// domain.ErrGeneration.
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatAnswer, error)
}
