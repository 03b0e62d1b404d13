package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

func TestIndexService_AppendThenQuery_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewIndexService(&mockEmbedder{}, newMockIndex(), nil)

	texts := []string{
		"blood pressure readings were elevated",
		"patient reports frequent migraines",
		"cholesterol within normal range",
	}
	n, err := svc.Append(ctx, "alice", texts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, text := range texts {
		got, err := svc.Query(ctx, "alice", text, 3)
		require.NoError(t, err)
		assert.Contains(t, got, text)
		assert.Equal(t, text, got[0])
	}
}

func TestIndexService_Query_EmptyPartition(t *testing.T) {
	emb := &mockEmbedder{}
	svc := NewIndexService(emb, newMockIndex(), nil)

	got, err := svc.Query(context.Background(), "nobody", "anything", 3)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, emb.calls, "empty partition must not embed the query")
}

func TestIndexService_PartitionIsolation(t *testing.T) {
	ctx := context.Background()
	svc := NewIndexService(&mockEmbedder{}, newMockIndex(), nil)

	_, err := svc.Append(ctx, "alice", []string{"alice private record"})
	require.NoError(t, err)

	for _, partition := range []string{"global", "bob"} {
		got, err := svc.Query(ctx, partition, "alice private record", 3)
		require.NoError(t, err)
		assert.Empty(t, got, partition)
	}
}

func TestIndexService_Append_NoDedup(t *testing.T) {
	ctx := context.Background()
	idx := newMockIndex()
	svc := NewIndexService(&mockEmbedder{}, idx, nil)

	_, err := svc.Append(ctx, "global", []string{"same text"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, "global", []string{"same text"})
	require.NoError(t, err)

	count, err := idx.Count(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexService_Query_KBounds(t *testing.T) {
	ctx := context.Background()
	svc := NewIndexService(&mockEmbedder{}, newMockIndex(), nil)
	_, err := svc.Append(ctx, "global", []string{"a", "b", "c", "d"})
	require.NoError(t, err)

	got, err := svc.Query(ctx, "global", "a", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.Query(ctx, "global", "a", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexService_Query_EmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	emb := &mockEmbedder{}
	svc := NewIndexService(emb, newMockIndex(), nil)
	_, err := svc.Append(ctx, "alice", []string{"record"})
	require.NoError(t, err)

	emb.err = errors.New("malformed input")
	_, err = svc.Query(ctx, "alice", "record", 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestIndexService_Append_EmbeddingFailureLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	idx := newMockIndex()
	svc := NewIndexService(&mockEmbedder{err: errors.New("down")}, idx, nil)

	n, err := svc.Append(ctx, "alice", []string{"record"})

	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Zero(t, n)
	count, _ := idx.Count(ctx, "alice")
	assert.Zero(t, count)
}

func TestIndexService_AppendChunks_BatchesAndFillsEmbeddings(t *testing.T) {
	emb := &mockEmbedder{}
	svc := NewIndexService(emb, newMockIndex(), nil)

	chunks := make([]domain.Chunk, embedBatchSize+5)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("c%d", i), Content: fmt.Sprintf("text %d", i)}
	}

	n, err := svc.AppendChunks(context.Background(), "global", chunks)

	require.NoError(t, err)
	assert.Equal(t, len(chunks), n)
	assert.Equal(t, 2, emb.batchCalls)
	for _, c := range chunks {
		assert.Len(t, c.Embedding, 26)
	}
}

func TestIndexService_Unavailable(t *testing.T) {
	ctx := context.Background()

	_, err := NewIndexService(nil, newMockIndex(), nil).Query(ctx, "global", "q", 3)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = NewIndexService(&mockEmbedder{}, nil, nil).Append(ctx, "global", []string{"x"})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestIndexService_Append_InvalidPartition(t *testing.T) {
	svc := NewIndexService(&mockEmbedder{}, newMockIndex(), nil)

	_, err := svc.Append(context.Background(), "  ", []string{"x"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexService_Rebuild(t *testing.T) {
	ctx := context.Background()
	emb := &mockEmbedder{}
	idx := newMockIndex()
	store := &mockStore{
		chunks: []domain.Chunk{
			{ID: "g1", Scope: domain.GlobalScope, Content: "diabetes overview", Embedding: letterVector("diabetes overview")},
			{ID: "a1", Scope: "alice", Content: "alice lab results"},
			{ID: "a2", Scope: "alice", Content: "alice allergy list", Embedding: []float32{1, 2}},
		},
	}
	svc := NewIndexService(emb, idx, store)

	// Stale vectors from before the restart are dropped.
	_, err := idx.Append(ctx, "bob", []driven.VectorRecord{{Text: "old", Embedding: letterVector("old")}})
	require.NoError(t, err)

	n, err := svc.Rebuild(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, idx.resets)
	assert.Equal(t, 1, emb.batchCalls, "only alice's stale chunks are re-embedded")
	bob, _ := idx.Count(ctx, "bob")
	assert.Zero(t, bob)

	got, err := svc.Query(ctx, "alice", "alice allergy list", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice allergy list"}, got)

	got, err = svc.Query(ctx, "global", "diabetes overview", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"diabetes overview"}, got)
}

func TestIndexService_Rebuild_StoreFailure(t *testing.T) {
	store := &mockStore{err: errors.New("db locked")}
	svc := NewIndexService(&mockEmbedder{}, newMockIndex(), store)

	_, err := svc.Rebuild(context.Background())

	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestGroupByScope_KeepsOrder(t *testing.T) {
	groups := groupByScope([]domain.Chunk{
		{Scope: "b", Content: "b1"},
		{Scope: "a", Content: "a1"},
		{Scope: "b", Content: "b2"},
	})

	require.Len(t, groups, 2)
	assert.Equal(t, domain.Scope("b"), groups[0].scope)
	assert.Equal(t, []string{"b1", "b2"}, domain.ChunkTexts(groups[0].chunks))
	assert.Equal(t, domain.Scope("a"), groups[1].scope)
}
