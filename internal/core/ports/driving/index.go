package driving

import "context"

// IndexService is the partitioned semantic index over chunk texts.
// It embeds text on the way in and on the way out.
type IndexService interface {
	// Append embeds each text and adds it to the partition atomically.
	// Returns the number of vectors added. Identical texts are not deduplicated.
	Append(ctx context.Context, partition string, texts []string) (int, error)

	// Query returns at most k texts from the partition, most similar first.
	// An empty or unknown partition returns an empty slice, not an error.
	// Embedding failures are returned wrapped in domain.ErrEmbedding.
	Query(ctx context.Context, partition, text string, k int) ([]string, error)

	// Rebuild reloads every stored chunk into the index so the index
	// mirrors the relational store. Returns the number of vectors loaded.
	Rebuild(ctx context.Context) (int, error)
}
