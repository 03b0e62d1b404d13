package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// ChunkIndexer appends chunks to a partition and fills in their embeddings.
type ChunkIndexer interface {
	AppendChunks(ctx context.Context, partition string, chunks []domain.Chunk) (int, error)
}

// IngestionService extracts, chunks, indexes and stores uploads.
//
// The index append happens before the store commit, and the two are not
// atomic. If the commit fails the vectors stay in the index until the
// next IndexService.Rebuild, which reloads the index from the store.
type IngestionService struct {
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	indexer     ChunkIndexer
	store       driven.Store
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	indexer ChunkIndexer,
	store driven.Store,
) *IngestionService {
	return &IngestionService{
		normalisers: normalisers,
		pipeline:    pipeline,
		indexer:     indexer,
		store:       store,
	}
}

// IngestUserRecord ingests a personal medical record into the user's partition.
func (s *IngestionService) IngestUserRecord(
	ctx context.Context,
	userID string,
	raw *domain.RawDocument,
) (*driving.IngestResult, error) {
	if !domain.ValidUserID(userID) {
		return nil, fmt.Errorf("%w: invalid user_id %q", domain.ErrInvalidInput, userID)
	}
	return s.ingest(ctx, domain.UserScope(userID), "", raw)
}

// IngestGlobalDocument ingests a reference document into the global partition.
func (s *IngestionService) IngestGlobalDocument(
	ctx context.Context,
	diseaseName string,
	raw *domain.RawDocument,
) (*driving.IngestResult, error) {
	diseaseName = strings.TrimSpace(diseaseName)
	if diseaseName == "" {
		return nil, fmt.Errorf("%w: disease_name is required", domain.ErrInvalidInput)
	}
	return s.ingest(ctx, domain.GlobalScope, diseaseName, raw)
}

func (s *IngestionService) ingest(
	ctx context.Context,
	scope domain.Scope,
	diseaseName string,
	raw *domain.RawDocument,
) (*driving.IngestResult, error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, domain.ErrExtractionEmpty
	}
	if s.normalisers == nil || s.pipeline == nil || s.indexer == nil || s.store == nil {
		return nil, errors.New("ingestion service not fully configured")
	}

	logger.Section(fmt.Sprintf("Ingesting %s into %q", raw.FileName, scope))

	// Extract
	result, err := s.normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", raw.FileName, err)
	}
	if strings.TrimSpace(result.Document.Content) == "" {
		return nil, domain.ErrExtractionEmpty
	}

	doc := result.Document
	doc.ID = uuid.New().String()
	doc.Scope = scope
	doc.FileName = raw.FileName
	doc.DiseaseName = diseaseName
	doc.CreatedAt = time.Now()
	if diseaseName != "" {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		doc.Metadata["disease_name"] = diseaseName
	}

	// Chunk
	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", raw.FileName, err)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrExtractionEmpty
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		chunks[i].Scope = scope
		chunks[i].Position = i
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.New().String()
		}
	}
	logger.Debug("Extracted %d characters into %d chunks", len(doc.Content), len(chunks))

	// Index first: the count it returns is what the caller sees as added.
	added, err := s.indexer.AppendChunks(ctx, scope.String(), chunks)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", raw.FileName, err)
	}

	// Then store metadata and chunks in one session.
	err = s.store.WithSession(ctx, func(sess driven.Session) error {
		if err := sess.Documents().SaveDocument(ctx, &doc); err != nil {
			return err
		}
		return sess.Documents().SaveChunks(ctx, chunks)
	})
	if err != nil {
		logger.Warn("Saving metadata for %s failed after %d vectors were indexed; run reindex to reconcile",
			raw.FileName, added)
		return nil, fmt.Errorf("%w: save document: %w", domain.ErrStorage, err)
	}

	logger.Info("Ingested %s into %q: %d chunks", raw.FileName, scope, added)
	return &driving.IngestResult{
		DocumentID:  doc.ID,
		Scope:       scope,
		ChunksAdded: added,
	}, nil
}
