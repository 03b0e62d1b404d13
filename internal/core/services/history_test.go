package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

func TestHistoryService_SaveChat(t *testing.T) {
	store := &mockStore{}
	svc := NewHistoryService(store)

	saved, err := svc.SaveChat(context.Background(), domain.ChatEntry{
		UserID:           "alice",
		Question:         "q",
		Response:         "a",
		PersonalizedMode: true,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	require.Len(t, store.chats, 1)
	assert.Equal(t, saved.ID, store.chats[0].ID)
	assert.True(t, store.chats[0].PersonalizedMode)
	assert.Zero(t, store.open)
}

func TestHistoryService_History_LimitNewestFirst(t *testing.T) {
	store := &mockStore{}
	svc := NewHistoryService(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.SaveChat(ctx, domain.ChatEntry{UserID: "alice", Question: fmt.Sprintf("q%d", i)})
		require.NoError(t, err)
	}

	got, err := svc.History(ctx, "alice", 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q4", got[0].Question)
	assert.Equal(t, "q3", got[1].Question)
}

func TestHistoryService_History_DefaultLimit(t *testing.T) {
	store := &mockStore{chats: chats("alice", driving.DefaultHistoryLimit+10)}
	svc := NewHistoryService(store)

	got, err := svc.History(context.Background(), "alice", 0)

	require.NoError(t, err)
	assert.Len(t, got, driving.DefaultHistoryLimit)
}

func TestHistoryService_History_Empty(t *testing.T) {
	got, err := NewHistoryService(&mockStore{}).History(context.Background(), "nobody", 10)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHistoryService_Errors(t *testing.T) {
	ctx := context.Background()
	failing := NewHistoryService(&mockStore{err: errors.New("locked")})

	_, err := failing.SaveChat(ctx, domain.ChatEntry{UserID: "alice"})
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = failing.History(ctx, "alice", 5)
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = NewHistoryService(&mockStore{}).SaveChat(ctx, domain.ChatEntry{UserID: "global"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
