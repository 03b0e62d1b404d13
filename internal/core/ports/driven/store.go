package driven

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// Store is the relational store for documents, chunks and chat history.
// Nothing holds a connection across requests: every unit of work runs
// inside a Session acquired through WithSession.
type Store interface {
	// WithSession acquires a session, runs fn, and releases the session on
	// every exit path. Writes are committed only when fn returns nil.
	WithSession(ctx context.Context, fn func(Session) error) error

	// Close releases the underlying connection pool.
	Close() error
}

// Session is a scoped view of the store bound to one unit of work.
type Session interface {
	Documents() DocumentStore
	Chats() ChatStore
}

// DocumentStore persists documents and their ordered chunks.
// Deleting a document deletes all of its chunks.
type DocumentStore interface {
	// SaveDocument stores a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores chunks. Each chunk's scope must match its document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns the documents of one scope, oldest first.
	ListDocuments(ctx context.Context, scope domain.Scope) ([]domain.Document, error)

	// ListAllChunks returns every stored chunk ordered by document
	// creation and position. Used to rebuild the vector index.
	ListAllChunks(ctx context.Context) ([]domain.Chunk, error)
}

// ChatStore persists the append-only chat log.
type ChatStore interface {
	// SaveChat appends an entry. ID and CreatedAt are assigned when empty.
	SaveChat(ctx context.Context, entry *domain.ChatEntry) error

	// ListChats returns a user's entries oldest first.
	ListChats(ctx context.Context, userID string) ([]domain.ChatEntry, error)

	// RecentChats returns at most limit entries, newest first.
	RecentChats(ctx context.Context, userID string, limit int) ([]domain.ChatEntry, error)

	// CountChats returns the number of entries for a user.
	CountChats(ctx context.Context, userID string) (int, error)
}
