package mcp

import (
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Retrieval queries a single partition.
	Retrieval driving.RetrievalService

	// Twin derives the digital twin report. Optional.
	Twin driving.DigitalTwinService

	// History lists chat logs. Optional.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
// Twin and History are optional; their tools and resources report
// unavailability instead.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
