package driven

import "context"

// VectorIndex stores embedded chunk texts in isolated partitions and
// answers nearest-neighbour queries within one partition.
//
// A partition is "global" or a literal user ID. Implementations must
// never return records from a partition other than the one queried.
type VectorIndex interface {
	// Append adds records to a partition as one atomic unit: concurrent
	// readers observe either none or all of them. Records are never
	// deduplicated. Returns the number of records added.
	Append(ctx context.Context, partition string, records []VectorRecord) (int, error)

	// Search returns up to k records closest to the query vector,
	// most similar first. An empty or unknown partition yields no hits.
	Search(ctx context.Context, partition string, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of records in a partition.
	Count(ctx context.Context, partition string) (int, error)

	// Reset drops every partition. Used before rebuilding from the store.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorRecord is one embedded chunk text. Records are immutable once appended.
type VectorRecord struct {
	// ChunkID links back to the stored chunk. May be empty for ad-hoc records.
	ChunkID string

	// Text is the chunk text returned on retrieval.
	Text string

	// Embedding is the vector for Text.
	Embedding []float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	ChunkID string
	Text    string

	// Similarity is the cosine similarity score.
	Similarity float64
}
