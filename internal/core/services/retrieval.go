package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService routes a query to one index partition.
type RetrievalService struct {
	index driving.IndexService
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(index driving.IndexService) *RetrievalService {
	return &RetrievalService{index: index}
}

// Retrieve returns up to k chunk texts from the partition.
func (s *RetrievalService) Retrieve(ctx context.Context, query, partition string, k int) ([]string, error) {
	if k <= 0 {
		return []string{}, nil
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	texts, err := s.index.Query(ctx, partition, query, k)
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			logger.Warn("Retrieval from partition %q degraded to empty: %v", partition, err)
			return []string{}, nil
		}
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if texts == nil {
		texts = []string{}
	}

	logger.Debug("Retrieved %d chunks from partition %q", len(texts), partition)
	return texts, nil
}
