package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// embedBatchSize bounds the number of texts sent in one embedding request.
const embedBatchSize = 64

// rebuildConcurrency bounds how many partitions are re-embedded at once.
const rebuildConcurrency = 4

// IndexService embeds chunk texts and keeps them in a partitioned vector index.
type IndexService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	store    driven.Store
}

// NewIndexService creates a new index service.
// The store is only needed by Rebuild and may be nil.
func NewIndexService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	store driven.Store,
) *IndexService {
	return &IndexService{
		embedder: embedder,
		index:    index,
		store:    store,
	}
}

// Append embeds each text and appends the vectors to the partition.
func (s *IndexService) Append(ctx context.Context, partition string, texts []string) (int, error) {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{Content: text, Position: i}
	}
	return s.AppendChunks(ctx, partition, chunks)
}

// AppendChunks embeds the chunks and appends them to the partition as one unit.
// Each chunk's Embedding is filled in place so the caller can persist it.
func (s *IndexService) AppendChunks(ctx context.Context, partition string, chunks []domain.Chunk) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if !domain.Scope(partition).IsValid() {
		return 0, fmt.Errorf("%w: empty partition", domain.ErrInvalidInput)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := s.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	records := make([]driven.VectorRecord, len(chunks))
	for i := range chunks {
		records[i] = driven.VectorRecord{
			ChunkID:   chunks[i].ID,
			Text:      chunks[i].Content,
			Embedding: chunks[i].Embedding,
		}
	}

	n, err := s.index.Append(ctx, partition, records)
	if err != nil {
		return 0, fmt.Errorf("append to partition %q: %w", partition, err)
	}

	logger.Debug("Appended %d vectors to partition %q", n, partition)
	return n, nil
}

// Query embeds text and returns the k nearest chunk texts in the partition.
// An empty partition returns without calling the embedder.
func (s *IndexService) Query(ctx context.Context, partition, text string, k int) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if k <= 0 || !domain.Scope(partition).IsValid() {
		return []string{}, nil
	}

	count, err := s.index.Count(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("count partition %q: %w", partition, err)
	}
	if count == 0 {
		return []string{}, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, embeddingError(err)
	}

	hits, err := s.index.Search(ctx, partition, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search partition %q: %w", partition, err)
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Text)
	}
	return texts, nil
}

// Rebuild drops the index and reloads every stored chunk into it.
// Chunks stored without an embedding, or with one of a different size
// than the current model produces, are re-embedded.
func (s *IndexService) Rebuild(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if s.store == nil {
		return 0, fmt.Errorf("rebuild: %w", domain.ErrStorage)
	}

	logger.Section("Rebuilding Vector Index")

	var chunks []domain.Chunk
	err := s.store.WithSession(ctx, func(sess driven.Session) error {
		var err error
		chunks, err = sess.Documents().ListAllChunks(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: load chunks: %w", domain.ErrStorage, err)
	}

	if err := s.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}

	partitions := groupByScope(chunks)
	logger.Debug("Loaded %d chunks across %d partitions", len(chunks), len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)

	counts := make([]int, len(partitions))
	for i, p := range partitions {
		g.Go(func() error {
			n, err := s.reload(gctx, p.scope.String(), p.chunks)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	logger.Info("Vector index rebuilt: %d vectors in %d partitions", total, len(partitions))
	return total, nil
}

// reload appends stored chunks, re-embedding only those that need it.
func (s *IndexService) reload(ctx context.Context, partition string, chunks []domain.Chunk) (int, error) {
	dims := s.embedder.Dimensions()

	var stale []domain.Chunk
	var staleAt []int
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 || (dims > 0 && len(chunks[i].Embedding) != dims) {
			stale = append(stale, chunks[i])
			staleAt = append(staleAt, i)
		}
	}
	if len(stale) > 0 {
		logger.Debug("Re-embedding %d chunks in partition %q", len(stale), partition)
		if err := s.embedChunks(ctx, stale); err != nil {
			return 0, err
		}
		for j, i := range staleAt {
			chunks[i].Embedding = stale[j].Embedding
		}
	}

	records := make([]driven.VectorRecord, len(chunks))
	for i := range chunks {
		records[i] = driven.VectorRecord{
			ChunkID:   chunks[i].ID,
			Text:      chunks[i].Content,
			Embedding: chunks[i].Embedding,
		}
	}

	n, err := s.index.Append(ctx, partition, records)
	if err != nil {
		return 0, fmt.Errorf("append to partition %q: %w", partition, err)
	}
	return n, nil
}

// embedChunks fills in each chunk's Embedding, batching requests.
func (s *IndexService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))

		vectors, err := s.embedder.EmbedBatch(ctx, domain.ChunkTexts(chunks[start:end]))
		if err != nil {
			return embeddingError(err)
		}
		if len(vectors) != end-start {
			return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbedding, len(vectors), end-start)
		}
		for i, vec := range vectors {
			chunks[start+i].Embedding = vec
		}
	}
	return nil
}

func (s *IndexService) ready() error {
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	if s.index == nil {
		return domain.ErrVectorIndexUnavailable
	}
	return nil
}

// embeddingError classifies an embedder failure as domain.ErrEmbedding
// unless it is a cancellation, which callers must not mistake for bad input.
func embeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbedding) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
}

type scopeChunks struct {
	scope  domain.Scope
	chunks []domain.Chunk
}

// groupByScope splits chunks by scope, keeping first-seen scope order and
// the stored order of chunks within each scope.
func groupByScope(chunks []domain.Chunk) []scopeChunks {
	var groups []scopeChunks
	at := make(map[domain.Scope]int)
	for _, c := range chunks {
		i, ok := at[c.Scope]
		if !ok {
			i = len(groups)
			at[c.Scope] = i
			groups = append(groups, scopeChunks{scope: c.Scope})
		}
		groups[i].chunks = append(groups[i].chunks, c)
	}
	return groups
}
