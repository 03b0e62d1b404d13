package httpapi

import (
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

// Services aggregates the driving ports the HTTP API serves.
type Services struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Ingestion handles medical record and reference document uploads.
	Ingestion driving.IngestionService

	// History stores and lists chat exchanges.
	History driving.HistoryService

	// Twin derives the digital twin risk report.
	Twin driving.DigitalTwinService
}

// Validate ensures all required services are set.
func (s *Services) Validate() error {
	switch {
	case s == nil:
		return ErrMissingServices
	case s.Chat == nil:
		return ErrMissingChatService
	case s.Ingestion == nil:
		return ErrMissingIngestionService
	case s.History == nil:
		return ErrMissingHistoryService
	case s.Twin == nil:
		return ErrMissingTwinService
	}
	return nil
}
