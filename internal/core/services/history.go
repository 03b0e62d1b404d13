package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// HistoryService manages the per-user chat log.
type HistoryService struct {
	store driven.Store
}

// NewHistoryService creates a new history service.
func NewHistoryService(store driven.Store) *HistoryService {
	return &HistoryService{store: store}
}

// SaveChat appends an exchange to the user's log.
func (s *HistoryService) SaveChat(ctx context.Context, entry domain.ChatEntry) (*domain.ChatEntry, error) {
	if !domain.ValidUserID(entry.UserID) {
		return nil, fmt.Errorf("%w: invalid user_id %q", domain.ErrInvalidInput, entry.UserID)
	}
	if s.store == nil {
		return nil, domain.ErrStorage
	}

	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	err := s.store.WithSession(ctx, func(sess driven.Session) error {
		return sess.Chats().SaveChat(ctx, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return &entry, nil
}

// History returns the user's most recent entries, newest first.
func (s *HistoryService) History(ctx context.Context, userID string, limit int) ([]domain.ChatEntry, error) {
	if !domain.ValidUserID(userID) {
		return nil, fmt.Errorf("%w: invalid user_id %q", domain.ErrInvalidInput, userID)
	}
	if s.store == nil {
		return nil, domain.ErrStorage
	}
	if limit <= 0 {
		limit = driving.DefaultHistoryLimit
	}

	var entries []domain.ChatEntry
	err := s.store.WithSession(ctx, func(sess driven.Session) error {
		var err error
		entries, err = sess.Chats().RecentChats(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if entries == nil {
		entries = []domain.ChatEntry{}
	}
	return entries, nil
}
