// Package storetest holds behaviour tests shared by every driven.Store
// implementation. Adapters call Run from their own _test.go files.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// Factory returns a fresh, empty store and registers its cleanup on t.
type Factory func(t *testing.T) driven.Store

// Run exercises the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("document round trip", func(t *testing.T) { testDocumentRoundTrip(t, newStore(t)) })
	t.Run("chunks ordered by position", func(t *testing.T) { testChunkOrder(t, newStore(t)) })
	t.Run("chunk scope must match document", func(t *testing.T) { testChunkScope(t, newStore(t)) })
	t.Run("delete cascades to chunks", func(t *testing.T) { testDeleteCascade(t, newStore(t)) })
	t.Run("list documents by scope", func(t *testing.T) { testListDocuments(t, newStore(t)) })
	t.Run("list all chunks", func(t *testing.T) { testListAllChunks(t, newStore(t)) })
	t.Run("failed session rolls back", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("chat log ordering", func(t *testing.T) { testChatOrdering(t, newStore(t)) })
	t.Run("chat log isolated per user", func(t *testing.T) { testChatIsolation(t, newStore(t)) })
	t.Run("save chat assigns identity", func(t *testing.T) { testChatIdentity(t, newStore(t)) })
}

// Document builds a document in scope created at the given offset from a
// fixed base time.
func Document(id string, scope domain.Scope, offset time.Duration) *domain.Document {
	return &domain.Document{
		ID:        id,
		Scope:     scope,
		FileName:  id + ".pdf",
		CreatedAt: base.Add(offset),
	}
}

// Chunks builds n chunks for doc with positions 0..n-1.
func Chunks(doc *domain.Document, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-c%d", doc.ID, i),
			DocumentID: doc.ID,
			Scope:      doc.Scope,
			Content:    fmt.Sprintf("%s chunk %d", doc.ID, i),
			Position:   i,
		}
	}
	return chunks
}

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func save(t *testing.T, store driven.Store, doc *domain.Document, chunks []domain.Chunk) {
	t.Helper()
	err := store.WithSession(context.Background(), func(s driven.Session) error {
		if err := s.Documents().SaveDocument(context.Background(), doc); err != nil {
			return err
		}
		return s.Documents().SaveChunks(context.Background(), chunks)
	})
	require.NoError(t, err)
}

func testDocumentRoundTrip(t *testing.T, store driven.Store) {
	ctx := context.Background()
	doc := Document("doc-1", domain.GlobalScope, 0)
	doc.DiseaseName = "Diabetes"
	doc.Metadata = map[string]any{"disease_name": "Diabetes"}
	save(t, store, doc, nil)

	err := store.WithSession(ctx, func(s driven.Session) error {
		got, err := s.Documents().GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, domain.GlobalScope, got.Scope)
		assert.Equal(t, "doc-1.pdf", got.FileName)
		assert.Equal(t, "Diabetes", got.DiseaseName)
		assert.Equal(t, "Diabetes", got.Metadata["disease_name"])
		assert.True(t, got.CreatedAt.Equal(doc.CreatedAt), "created_at %s != %s", got.CreatedAt, doc.CreatedAt)

		_, err = s.Documents().GetDocument(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testChunkOrder(t *testing.T, store driven.Store) {
	ctx := context.Background()
	doc := Document("doc-1", "alice", 0)
	chunks := Chunks(doc, 3)
	chunks[0], chunks[2] = chunks[2], chunks[0]
	chunks[1].Embedding = []float32{0.25, -1, 3.5}
	save(t, store, doc, chunks)

	err := store.WithSession(ctx, func(s driven.Session) error {
		got, err := s.Documents().GetChunks(ctx, "doc-1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, c := range got {
			assert.Equal(t, i, c.Position)
			assert.Equal(t, domain.Scope("alice"), c.Scope)
		}
		assert.Equal(t, []float32{0.25, -1, 3.5}, got[1].Embedding)
		assert.Empty(t, got[0].Embedding)
		return nil
	})
	require.NoError(t, err)
}

func testChunkScope(t *testing.T, store driven.Store) {
	ctx := context.Background()
	doc := Document("doc-1", "alice", 0)
	save(t, store, doc, nil)

	chunks := Chunks(doc, 1)
	chunks[0].Scope = "bob"
	err := store.WithSession(ctx, func(s driven.Session) error {
		return s.Documents().SaveChunks(ctx, chunks)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testDeleteCascade(t *testing.T, store driven.Store) {
	ctx := context.Background()
	doc := Document("doc-1", "alice", 0)
	save(t, store, doc, Chunks(doc, 4))

	err := store.WithSession(ctx, func(s driven.Session) error {
		require.NoError(t, s.Documents().DeleteDocument(ctx, "doc-1"))

		got, err := s.Documents().GetChunks(ctx, "doc-1")
		require.NoError(t, err)
		assert.Empty(t, got)

		all, err := s.Documents().ListAllChunks(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		assert.ErrorIs(t, s.Documents().DeleteDocument(ctx, "doc-1"), domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testListDocuments(t *testing.T, store driven.Store) {
	ctx := context.Background()
	save(t, store, Document("g2", domain.GlobalScope, 2*time.Minute), nil)
	save(t, store, Document("a1", "alice", time.Minute), nil)
	save(t, store, Document("g1", domain.GlobalScope, time.Minute), nil)

	err := store.WithSession(ctx, func(s driven.Session) error {
		global, err := s.Documents().ListDocuments(ctx, domain.GlobalScope)
		require.NoError(t, err)
		require.Len(t, global, 2)
		assert.Equal(t, "g1", global[0].ID)
		assert.Equal(t, "g2", global[1].ID)

		none, err := s.Documents().ListDocuments(ctx, "carol")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)
}

func testListAllChunks(t *testing.T, store driven.Store) {
	ctx := context.Background()
	later := Document("later", "alice", time.Hour)
	earlier := Document("earlier", domain.GlobalScope, 0)
	save(t, store, later, Chunks(later, 2))
	save(t, store, earlier, Chunks(earlier, 2))

	err := store.WithSession(ctx, func(s driven.Session) error {
		all, err := s.Documents().ListAllChunks(ctx)
		require.NoError(t, err)
		ids := make([]string, len(all))
		for i, c := range all {
			ids[i] = c.ID
		}
		assert.Equal(t, []string{"earlier-c0", "earlier-c1", "later-c0", "later-c1"}, ids)
		assert.Equal(t, domain.GlobalScope, all[0].Scope)
		assert.Equal(t, domain.Scope("alice"), all[3].Scope)
		return nil
	})
	require.NoError(t, err)
}

func testRollback(t *testing.T, store driven.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithSession(ctx, func(s driven.Session) error {
		doc := Document("doc-1", "alice", 0)
		require.NoError(t, s.Documents().SaveDocument(ctx, doc))
		require.NoError(t, s.Chats().SaveChat(ctx, &domain.ChatEntry{UserID: "alice", Question: "q", Response: "r"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.WithSession(ctx, func(s driven.Session) error {
		_, err := s.Documents().GetDocument(ctx, "doc-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		n, err := s.Chats().CountChats(ctx, "alice")
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

func testChatOrdering(t *testing.T, store driven.Store) {
	ctx := context.Background()

	err := store.WithSession(ctx, func(s driven.Session) error {
		for i := range 5 {
			entry := &domain.ChatEntry{
				UserID:    "alice",
				Question:  fmt.Sprintf("q%d", i),
				Response:  fmt.Sprintf("r%d", i),
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, s.Chats().SaveChat(ctx, entry))
		}

		all, err := s.Chats().ListChats(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "q0", all[0].Question)
		assert.Equal(t, "q4", all[4].Question)

		recent, err := s.Chats().RecentChats(ctx, "alice", 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "q4", recent[0].Question)
		assert.Equal(t, "q3", recent[1].Question)

		n, err := s.Chats().CountChats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		return nil
	})
	require.NoError(t, err)
}

func testChatIsolation(t *testing.T, store driven.Store) {
	ctx := context.Background()

	err := store.WithSession(ctx, func(s driven.Session) error {
		require.NoError(t, s.Chats().SaveChat(ctx, &domain.ChatEntry{UserID: "alice", Question: "mine"}))
		require.NoError(t, s.Chats().SaveChat(ctx, &domain.ChatEntry{UserID: "bob", Question: "theirs"}))

		got, err := s.Chats().ListChats(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "mine", got[0].Question)

		none, err := s.Chats().RecentChats(ctx, "carol", 10)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)
}

func testChatIdentity(t *testing.T, store driven.Store) {
	ctx := context.Background()
	entry := &domain.ChatEntry{UserID: "alice", Question: "q", Response: "r", PersonalizedMode: true}

	err := store.WithSession(ctx, func(s driven.Session) error {
		return s.Chats().SaveChat(ctx, entry)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	err = store.WithSession(ctx, func(s driven.Session) error {
		got, err := s.Chats().ListChats(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, entry.ID, got[0].ID)
		assert.True(t, got[0].PersonalizedMode)
		return nil
	})
	require.NoError(t, err)
}
