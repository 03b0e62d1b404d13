// Package tui provides an interactive terminal chat session with the
// medical assistant. It is a driving adapter over the chat and history
// ports.
package tui

import (
	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by a chat session.
type Ports struct {
	// Chat answers questions. Required.
	Chat driving.ChatService

	// History records each exchange when set. Optional.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}

// Session identifies who is chatting.
type Session struct {
	UserID string

	// Telemetry is attached to every question in the session. Optional.
	Telemetry *domain.Telemetry
}
