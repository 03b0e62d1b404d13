// Package memory provides an in-process partitioned vector index using
// brute-force cosine similarity.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// ErrDimensionMismatch is returned when a record's vector size differs
// from the vectors already in its partition.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index keeps one append-only partition per key.
// Partitions are created lazily on first append.
type Index struct {
	mu         sync.RWMutex
	partitions map[string]*partition
}

// partition holds records and their precomputed norms. Appends replace
// the slices under the write lock, so a reader holding the read lock
// sees either none or all of an append.
type partition struct {
	mu        sync.RWMutex
	dimension int
	records   []driven.VectorRecord
	norms     []float64
}

// New creates an empty index.
func New() *Index {
	return &Index{partitions: make(map[string]*partition)}
}

// Append adds records to a partition atomically.
func (idx *Index) Append(_ context.Context, key string, records []driven.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	p := idx.partition(key, true)

	p.mu.Lock()
	defer p.mu.Unlock()

	dim := p.dimension
	if dim == 0 {
		dim = len(records[0].Embedding)
	}
	norms := make([]float64, len(records))
	for i, r := range records {
		if len(r.Embedding) == 0 || len(r.Embedding) != dim {
			return 0, fmt.Errorf("%w: partition %q expects %d, got %d",
				ErrDimensionMismatch, key, dim, len(r.Embedding))
		}
		norms[i] = norm(r.Embedding)
	}

	p.dimension = dim
	p.records = append(p.records, records...)
	p.norms = append(p.norms, norms...)
	return len(records), nil
}

// Search returns up to k records most similar to the query.
func (idx *Index) Search(_ context.Context, key string, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}
	p := idx.partition(key, false)
	if p == nil {
		return []driven.VectorHit{}, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.records) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != p.dimension {
		return nil, fmt.Errorf("%w: partition %q expects %d, got %d",
			ErrDimensionMismatch, key, p.dimension, len(query))
	}

	qn := norm(query)
	scores := make([]float64, len(p.records))
	for i := range p.records {
		scores[i] = cosine(query, p.records[i].Embedding, qn, p.norms[i])
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// Stable so equal scores keep insertion order.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		r := p.records[order[i]]
		hits[i] = driven.VectorHit{
			ChunkID:    r.ChunkID,
			Text:       r.Text,
			Similarity: scores[order[i]],
		}
	}
	return hits, nil
}

// Count returns the number of records in a partition.
func (idx *Index) Count(_ context.Context, key string) (int, error) {
	p := idx.partition(key, false)
	if p == nil {
		return 0, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records), nil
}

// Reset drops every partition.
func (idx *Index) Reset(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.partitions = make(map[string]*partition)
	return nil
}

// Close is a no-op.
func (idx *Index) Close() error {
	return nil
}

func (idx *Index) partition(key string, create bool) *partition {
	idx.mu.RLock()
	p, ok := idx.partitions[key]
	idx.mu.RUnlock()
	if ok || !create {
		return p
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if p, ok = idx.partitions[key]; !ok {
		p = &partition{}
		idx.partitions[key] = p
	}
	return p
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
