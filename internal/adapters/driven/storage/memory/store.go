package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// Store is an in-memory driven.Store. Sessions are serialised: one session
// holds the store at a time, and a failed session is undone from a journal.
type Store struct {
	mu        sync.Mutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk // by document ID, ordered by position
	chats     map[string][]domain.ChatEntry
	closed    bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		chats:     make(map[string][]domain.ChatEntry),
	}
}

// WithSession runs fn with exclusive access. Changes made by fn are rolled
// back when it returns an error or panics.
func (s *Store) WithSession(ctx context.Context, fn func(driven.Session) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("memory store is closed")
	}

	sess := &session{store: s}
	committed := false
	defer func() {
		if !committed {
			sess.rollback()
		}
	}()

	if err = fn(sess); err != nil {
		return err
	}
	committed = true
	return nil
}

// Close marks the store closed. Later sessions fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// session records an undo step for every mutation it makes.
type session struct {
	store   *Store
	journal []func()
}

func (s *session) Documents() driven.DocumentStore { return (*documentStore)(s) }
func (s *session) Chats() driven.ChatStore         { return (*chatStore)(s) }

func (s *session) rollback() {
	for i := len(s.journal) - 1; i >= 0; i-- {
		s.journal[i]()
	}
	s.journal = nil
}

// snapshotDocument journals the current state of one document and its chunks.
func (s *session) snapshotDocument(id string) {
	doc, hadDoc := s.store.documents[id]
	chunks, hadChunks := s.store.chunks[id]
	chunks = slices.Clone(chunks)
	s.journal = append(s.journal, func() {
		if hadDoc {
			s.store.documents[id] = doc
		} else {
			delete(s.store.documents, id)
		}
		if hadChunks {
			s.store.chunks[id] = chunks
		} else {
			delete(s.store.chunks, id)
		}
	})
}

// ==================== Document Store ====================

type documentStore session

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (d *documentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if !doc.Scope.IsValid() {
		return fmt.Errorf("%w: document %s has no scope", domain.ErrInvalidInput, doc.ID)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	sess := (*session)(d)
	sess.snapshotDocument(doc.ID)

	stored := *doc
	stored.Content = ""
	stored.Metadata = maps.Clone(doc.Metadata)
	if existing, ok := d.store.documents[doc.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	d.store.documents[doc.ID] = stored
	return nil
}

// SaveChunks stores or replaces chunks by ID.
func (d *documentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	sess := (*session)(d)
	for _, chunk := range chunks {
		doc, ok := d.store.documents[chunk.DocumentID]
		if !ok || doc.Scope != chunk.Scope {
			return fmt.Errorf("%w: chunk %s does not match a document in scope %q",
				domain.ErrInvalidInput, chunk.ID, chunk.Scope)
		}

		sess.snapshotDocument(chunk.DocumentID)
		existing := d.store.chunks[chunk.DocumentID]
		chunk.Embedding = slices.Clone(chunk.Embedding)
		chunk.Metadata = maps.Clone(chunk.Metadata)

		replaced := false
		for i := range existing {
			if existing[i].ID == chunk.ID {
				existing[i] = chunk
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, chunk)
		}
		sort.SliceStable(existing, func(i, j int) bool { return existing[i].Position < existing[j].Position })
		d.store.chunks[chunk.DocumentID] = existing
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (d *documentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := d.store.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.Metadata = maps.Clone(doc.Metadata)
	return &doc, nil
}

// GetChunks retrieves all chunks for a document ordered by position.
func (d *documentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	return cloneChunks(d.store.chunks[documentID]), nil
}

// DeleteDocument removes a document and its chunks.
func (d *documentStore) DeleteDocument(_ context.Context, id string) error {
	if _, ok := d.store.documents[id]; !ok {
		return domain.ErrNotFound
	}
	(*session)(d).snapshotDocument(id)
	delete(d.store.documents, id)
	delete(d.store.chunks, id)
	return nil
}

// ListDocuments returns the documents of one scope, oldest first.
func (d *documentStore) ListDocuments(_ context.Context, scope domain.Scope) ([]domain.Document, error) {
	docs := []domain.Document{}
	for _, doc := range d.sortedDocuments() {
		if doc.Scope == scope {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// ListAllChunks returns every chunk ordered by document creation and position.
func (d *documentStore) ListAllChunks(_ context.Context) ([]domain.Chunk, error) {
	all := []domain.Chunk{}
	for _, doc := range d.sortedDocuments() {
		all = append(all, cloneChunks(d.store.chunks[doc.ID])...)
	}
	return all, nil
}

func (d *documentStore) sortedDocuments() []domain.Document {
	docs := slices.Collect(maps.Values(d.store.documents))
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

func cloneChunks(chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = slices.Clone(c.Embedding)
		c.Metadata = maps.Clone(c.Metadata)
		out[i] = c
	}
	return out
}

// ==================== Chat Store ====================

type chatStore session

var _ driven.ChatStore = (*chatStore)(nil)

// SaveChat appends an entry. Entries stay in insertion order, which is
// also creation order unless the caller supplies CreatedAt out of order.
func (c *chatStore) SaveChat(_ context.Context, entry *domain.ChatEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	userID := entry.UserID
	prev, had := c.store.chats[userID]
	c.journal = append(c.journal, func() {
		if had {
			c.store.chats[userID] = prev
		} else {
			delete(c.store.chats, userID)
		}
	})

	entries := append(slices.Clone(prev), *entry)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	c.store.chats[userID] = entries
	return nil
}

// ListChats returns a user's entries oldest first.
func (c *chatStore) ListChats(_ context.Context, userID string) ([]domain.ChatEntry, error) {
	return append([]domain.ChatEntry{}, c.store.chats[userID]...), nil
}

// RecentChats returns at most limit entries, newest first.
func (c *chatStore) RecentChats(_ context.Context, userID string, limit int) ([]domain.ChatEntry, error) {
	entries := c.store.chats[userID]
	out := []domain.ChatEntry{}
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// CountChats returns the number of entries for a user.
func (c *chatStore) CountChats(_ context.Context, userID string) (int, error) {
	return len(c.store.chats[userID]), nil
}
