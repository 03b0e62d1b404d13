package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/storage/storetest"
	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.Store {
		store := NewStore()
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestStore_ClosedRejectsSessions(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Close())

	err := store.WithSession(context.Background(), func(driven.Session) error { return nil })

	assert.Error(t, err)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().WithSession(ctx, func(driven.Session) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_RollbackRestoresReplacedChunks(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	doc := storetest.Document("doc-1", "alice", 0)
	chunks := storetest.Chunks(doc, 2)

	require.NoError(t, store.WithSession(ctx, func(s driven.Session) error {
		require.NoError(t, s.Documents().SaveDocument(ctx, doc))
		return s.Documents().SaveChunks(ctx, chunks)
	}))

	_ = store.WithSession(ctx, func(s driven.Session) error {
		edited := storetest.Chunks(doc, 2)
		edited[0].Content = "edited"
		require.NoError(t, s.Documents().SaveChunks(ctx, edited))
		require.NoError(t, s.Documents().DeleteDocument(ctx, "doc-1"))
		return assert.AnError
	})

	require.NoError(t, store.WithSession(ctx, func(s driven.Session) error {
		got, err := s.Documents().GetChunks(ctx, "doc-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "doc-1 chunk 0", got[0].Content)
		return nil
	}))
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	doc := storetest.Document("doc-1", "alice", 0)
	chunks := storetest.Chunks(doc, 1)
	chunks[0].Embedding = []float32{1, 2}

	require.NoError(t, store.WithSession(ctx, func(s driven.Session) error {
		require.NoError(t, s.Documents().SaveDocument(ctx, doc))
		require.NoError(t, s.Documents().SaveChunks(ctx, chunks))

		got, err := s.Documents().GetChunks(ctx, "doc-1")
		require.NoError(t, err)
		got[0].Embedding[0] = 99

		again, err := s.Documents().GetChunks(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, again[0].Embedding)
		return nil
	}))
}

func TestStore_ConcurrentSessions(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithSession(ctx, func(s driven.Session) error {
				return s.Chats().SaveChat(ctx, &domain.ChatEntry{UserID: "alice", Question: "q"})
			})
		}()
	}
	wg.Wait()

	require.NoError(t, store.WithSession(ctx, func(s driven.Session) error {
		n, err := s.Chats().CountChats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 20, n)
		return nil
	}))
}
