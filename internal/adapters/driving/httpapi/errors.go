// Package httpapi exposes the PulseIQ services over a JSON HTTP API
// built on gin.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// Construction errors.
var (
	ErrMissingServices         = errors.New("httpapi: services are required")
	ErrMissingChatService      = errors.New("httpapi: chat service is required")
	ErrMissingIngestionService = errors.New("httpapi: ingestion service is required")
	ErrMissingHistoryService   = errors.New("httpapi: history service is required")
	ErrMissingTwinService      = errors.New("httpapi: digital twin service is required")
)

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtractionEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrVectorIndexUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGeneration), errors.Is(err, domain.ErrEmbedding):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the {"error": message} payload.
func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
