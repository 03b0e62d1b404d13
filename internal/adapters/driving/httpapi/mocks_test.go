package httpapi

import (
	"context"
	"time"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

type mockChatService struct {
	answer  *domain.ChatAnswer
	err     error
	lastReq domain.ChatRequest
}

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatAnswer, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockIngestionService struct {
	result      *driving.IngestResult
	err         error
	lastUser    string
	lastDisease string
	lastRaw     *domain.RawDocument
}

func (m *mockIngestionService) IngestUserRecord(_ context.Context, userID string, raw *domain.RawDocument) (*driving.IngestResult, error) {
	m.lastUser = userID
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngestionService) IngestGlobalDocument(_ context.Context, disease string, raw *domain.RawDocument) (*driving.IngestResult, error) {
	m.lastDisease = disease
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockHistoryService struct {
	entries   []domain.ChatEntry
	saved     *domain.ChatEntry
	err       error
	lastLimit int
}

func (m *mockHistoryService) SaveChat(_ context.Context, entry domain.ChatEntry) (*domain.ChatEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry.ID = "chat-1"
	entry.CreatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m.saved = &entry
	return &entry, nil
}

func (m *mockHistoryService) History(_ context.Context, _ string, limit int) ([]domain.ChatEntry, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.entries) > limit {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

type mockTwinService struct {
	report *domain.TwinReport
	err    error
}

func (m *mockTwinService) Report(_ context.Context, userID string) (*domain.TwinReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &domain.TwinReport{
			UserID:     userID,
			Assessment: domain.NoRisk(domain.SummaryNoChats),
		}, nil
	}
	return m.report, nil
}

type testServices struct {
	chat      *mockChatService
	ingestion *mockIngestionService
	history   *mockHistoryService
	twin      *mockTwinService
}

func newTestServices() *testServices {
	return &testServices{
		chat:      &mockChatService{},
		ingestion: &mockIngestionService{},
		history:   &mockHistoryService{},
		twin:      &mockTwinService{},
	}
}

func (t *testServices) ports() *Services {
	return &Services{
		Chat:      t.chat,
		Ingestion: t.ingestion,
		History:   t.history,
		Twin:      t.twin,
	}
}
