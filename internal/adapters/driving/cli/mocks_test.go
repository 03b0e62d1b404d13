package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/inbox"
	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

// ==================== Mock Chat ====================

type mockChat struct {
	answer  *domain.ChatAnswer
	err     error
	lastReq domain.ChatRequest
}

func (m *mockChat) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatAnswer, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.ChatAnswer{UserID: req.UserID, Response: "answer to " + req.Question}, nil
}

// ==================== Mock Ingestion ====================

type mockIngestion struct {
	err         error
	lastUser    string
	lastDisease string
	lastRaw     *domain.RawDocument
}

func (m *mockIngestion) IngestUserRecord(_ context.Context, userID string, raw *domain.RawDocument) (*driving.IngestResult, error) {
	m.lastUser = userID
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return &driving.IngestResult{DocumentID: "doc-1", Scope: domain.Scope(userID), ChunksAdded: 3}, nil
}

func (m *mockIngestion) IngestGlobalDocument(_ context.Context, diseaseName string, raw *domain.RawDocument) (*driving.IngestResult, error) {
	m.lastDisease = diseaseName
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return &driving.IngestResult{DocumentID: "doc-2", Scope: domain.GlobalScope, ChunksAdded: 5}, nil
}

// ==================== Mock History ====================

type mockHistory struct {
	entries   []domain.ChatEntry
	err       error
	saved     []domain.ChatEntry
	lastLimit int
}

func (m *mockHistory) SaveChat(_ context.Context, entry domain.ChatEntry) (*domain.ChatEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry.ID = "chat-1"
	m.saved = append(m.saved, entry)
	return &entry, nil
}

func (m *mockHistory) History(_ context.Context, _ string, limit int) ([]domain.ChatEntry, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// ==================== Mock Twin ====================

type mockTwin struct {
	report *domain.TwinReport
	err    error
}

func (m *mockTwin) Report(_ context.Context, userID string) (*domain.TwinReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &domain.TwinReport{
		UserID:     userID,
		Assessment: domain.NewRiskAssessment(domain.RiskNone, domain.SummaryNoHistory),
	}, nil
}

// ==================== Mock Index ====================

type mockIndex struct {
	rebuilt int
	err     error
}

func (m *mockIndex) Append(context.Context, string, []string) (int, error) { return 0, nil }

func (m *mockIndex) Query(context.Context, string, string, int) ([]string, error) { return nil, nil }

func (m *mockIndex) Rebuild(context.Context) (int, error) {
	return m.rebuilt, m.err
}

// ==================== Test Helpers ====================

type testMocks struct {
	chat      *mockChat
	ingestion *mockIngestion
	history   *mockHistory
	twin      *mockTwin
	index     *mockIndex
	services  *Services
}

// setupTestServices installs mock services and resets command flags.
func setupTestServices(t *testing.T) *testMocks {
	t.Helper()
	m := &testMocks{
		chat:      &mockChat{},
		ingestion: &mockIngestion{},
		history:   &mockHistory{},
		twin:      &mockTwin{},
		index:     &mockIndex{},
	}
	m.services = &Services{
		Chat:      m.chat,
		Ingestion: m.ingestion,
		History:   m.history,
		Twin:      m.twin,
		Index:     m.index,
	}

	resetFlags()
	services = m.services
	t.Cleanup(func() {
		services = nil
		release = nil
		resetFlags()
	})
	return m
}

func resetFlags() {
	ingestUser, ingestGlobal, ingestDisease = "", false, ""
	askUser, askWatch, askSave, askJSON = "", "", false, false
	twinJSON = false
	chatUser, chatWatch, chatNoSave = "", "", false
	watchSettle = inbox.DefaultSettle
	historyLimit, historyJSON = driving.DefaultHistoryLimit, false
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
