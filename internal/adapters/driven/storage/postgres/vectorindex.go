package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// appendBatchSize bounds the rows per INSERT statement.
const appendBatchSize = 100

// VectorIndex is a durable driven.VectorIndex over the vector_records table.
type VectorIndex struct {
	db *gorm.DB
}

// NewVectorIndex wraps an opened database.
func NewVectorIndex(db *gorm.DB) *VectorIndex {
	return &VectorIndex{db: db}
}

// Append inserts records in one transaction, so readers see none or all of them.
func (idx *VectorIndex) Append(ctx context.Context, partition string, records []driven.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]vectorModel, len(records))
	for i, r := range records {
		if len(r.Embedding) == 0 {
			return 0, fmt.Errorf("%w: record %d in partition %q has no embedding",
				domain.ErrInvalidInput, i, partition)
		}
		rows[i] = vectorModel{
			PartitionKey: partition,
			ChunkID:      r.ChunkID,
			Text:         r.Text,
			Embedding:    pgvector.NewVector(r.Embedding),
		}
	}

	err := idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, appendBatchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("appending to partition %q: %w", partition, err)
	}
	return len(rows), nil
}

// Search ranks a partition by cosine distance to the query.
func (idx *VectorIndex) Search(ctx context.Context, partition string, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return []driven.VectorHit{}, nil
	}

	var rows []struct {
		ChunkID  string
		Text     string
		Distance float64
	}
	err := idx.db.WithContext(ctx).
		Model(&vectorModel{}).
		Select("chunk_id, text, embedding <=> ? AS distance", pgvector.NewVector(query)).
		Where("partition_key = ?", partition).
		Order("distance ASC, id ASC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("searching partition %q: %w", partition, err)
	}

	hits := make([]driven.VectorHit, len(rows))
	for i, row := range rows {
		hits[i] = driven.VectorHit{
			ChunkID:    row.ChunkID,
			Text:       row.Text,
			Similarity: 1 - row.Distance,
		}
	}
	return hits, nil
}

// Count returns the number of records in a partition.
func (idx *VectorIndex) Count(ctx context.Context, partition string) (int, error) {
	var n int64
	err := idx.db.WithContext(ctx).Model(&vectorModel{}).Where("partition_key = ?", partition).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting partition %q: %w", partition, err)
	}
	return int(n), nil
}

// Reset drops every partition.
func (idx *VectorIndex) Reset(ctx context.Context) error {
	if err := idx.db.WithContext(ctx).Exec("TRUNCATE TABLE vector_records").Error; err != nil {
		return fmt.Errorf("resetting vector index: %w", err)
	}
	return nil
}

// Close is a no-op. The pool is owned by Store.
func (idx *VectorIndex) Close() error {
	return nil
}
