package driving

import "context"

// DefaultTopK is the number of chunks retrieved per partition.
const DefaultTopK = 3

// RetrievalService is the single entry point for context retrieval.
type RetrievalService interface {
	// Retrieve returns up to k chunk texts from the partition, most similar
	// first. k <= 0 yields an empty result. Embedding failures degrade to
	// an empty result; only infrastructure failures are returned.
	Retrieve(ctx context.Context, query, partition string, k int) ([]string, error)
}
