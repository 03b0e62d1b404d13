package mcp

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer  *domain.ChatAnswer
	err     error
	lastReq domain.ChatRequest
}

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatAnswer, error) {
	m.lastReq = req
	return m.answer, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	chunks        []string
	err           error
	lastPartition string
	lastK         int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _, partition string, k int) ([]string, error) {
	m.lastPartition = partition
	m.lastK = k
	if k <= 0 {
		return nil, m.err
	}
	return m.chunks, m.err
}

func intPtr(n int) *int { return &n }

// mockTwinService is a mock implementation of driving.DigitalTwinService.
type mockTwinService struct {
	report *domain.TwinReport
	err    error
}

func (m *mockTwinService) Report(_ context.Context, _ string) (*domain.TwinReport, error) {
	return m.report, m.err
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	entries   []domain.ChatEntry
	err       error
	lastUser  string
	lastLimit int
}

func (m *mockHistoryService) SaveChat(_ context.Context, entry domain.ChatEntry) (*domain.ChatEntry, error) {
	return &entry, m.err
}

func (m *mockHistoryService) History(_ context.Context, userID string, limit int) ([]domain.ChatEntry, error) {
	m.lastUser = userID
	m.lastLimit = limit
	return m.entries, m.err
}

func requiredPorts() *Ports {
	return &Ports{
		Chat:      &mockChatService{},
		Retrieval: &mockRetrievalService{},
	}
}
