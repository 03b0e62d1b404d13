package tui

import "github.com/pulseiq/pulseiq-rag/internal/core/domain"

// answerReceived carries a chat result back to the model.
type answerReceived struct {
	answer *domain.ChatAnswer
	err    error

	// saveErr is set when the answer was produced but not recorded.
	saveErr error
}
