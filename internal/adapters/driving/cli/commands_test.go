package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ==================== Root ====================

func TestRequireServices_NoBootstrapper(t *testing.T) {
	resetFlags()
	services = nil
	SetBootstrapper(nil)

	_, err := execute(t, "reindex")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "services not configured")
}

func TestRequireServices_BootstrapsOnceAndReleases(t *testing.T) {
	resetFlags()
	services = nil
	idx := &mockIndex{rebuilt: 2}
	calls, released := 0, 0
	var gotOpts BootstrapOptions

	SetBootstrapper(func(_ context.Context, opts BootstrapOptions) (*Services, func() error, error) {
		calls++
		gotOpts = opts
		return &Services{Index: idx}, func() error { released++; return nil }, nil
	})
	t.Cleanup(func() {
		SetBootstrapper(nil)
		configDir = ""
	})

	out, err := execute(t, "reindex", "--config-dir", "/tmp/pulseiq-test")
	require.NoError(t, err)
	assert.Contains(t, out, "Reindexed 2 chunks")
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/tmp/pulseiq-test", gotOpts.ConfigDir)

	require.NoError(t, releaseServices())
	assert.Equal(t, 1, released)
	assert.Nil(t, services)
	assert.NoError(t, releaseServices())
}

func TestRequireServices_BootstrapError(t *testing.T) {
	resetFlags()
	services = nil
	SetBootstrapper(func(context.Context, BootstrapOptions) (*Services, func() error, error) {
		return nil, nil, errors.New("bad config")
	})
	t.Cleanup(func() { SetBootstrapper(nil) })

	_, err := execute(t, "reindex")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad config")
}

// ==================== Ingest ====================

func TestIngest_UserRecord(t *testing.T) {
	m := setupTestServices(t)
	path := writeTempFile(t, "labs.txt", "glucose 180 mg/dL")

	out, err := execute(t, "ingest", "--user", "alice", path)

	require.NoError(t, err)
	assert.Equal(t, "alice", m.ingestion.lastUser)
	assert.Equal(t, "labs.txt", m.ingestion.lastRaw.FileName)
	assert.Equal(t, "glucose 180 mg/dL", string(m.ingestion.lastRaw.Content))
	assert.Contains(t, out, "Ingested labs.txt into alice: 3 chunks")
}

func TestIngest_GlobalDocument(t *testing.T) {
	m := setupTestServices(t)
	path := writeTempFile(t, "guide.md", "# Diabetes")

	out, err := execute(t, "ingest", "--global", "--disease", "Diabetes", path)

	require.NoError(t, err)
	assert.Equal(t, "Diabetes", m.ingestion.lastDisease)
	assert.Contains(t, out, "into global: 5 chunks")
}

func TestIngest_FlagErrors(t *testing.T) {
	path := writeTempFile(t, "x.txt", "text")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no target", []string{"ingest", path}, "exactly one of --user or --global"},
		{"both targets", []string{"ingest", "--user", "alice", "--global", "--disease", "d", path}, "exactly one of --user or --global"},
		{"global without disease", []string{"ingest", "--global", path}, "--disease is required"},
		{"missing file", []string{"ingest", "--user", "alice", filepath.Join(t.TempDir(), "nope.pdf")}, "reading"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestServices(t)

			_, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIngest_ServiceError(t *testing.T) {
	m := setupTestServices(t)
	m.ingestion.err = domain.ErrExtractionEmpty
	path := writeTempFile(t, "empty.txt", " ")

	_, err := execute(t, "ingest", "--user", "alice", path)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionEmpty)
}

// ==================== Ask ====================

func TestAsk_PrintsAnswer(t *testing.T) {
	m := setupTestServices(t)

	out, err := execute(t, "ask", "--user", "alice", "What is HbA1c?")

	require.NoError(t, err)
	assert.Equal(t, "alice", m.chat.lastReq.UserID)
	assert.Nil(t, m.chat.lastReq.Telemetry)
	assert.Contains(t, out, "answer to What is HbA1c?")
	assert.NotContains(t, out, "personalized")
	assert.Empty(t, m.history.saved)
}

func TestAsk_WatchDataAndSave(t *testing.T) {
	m := setupTestServices(t)
	m.chat.answer = &domain.ChatAnswer{UserID: "alice", Personalized: true, Response: "Rest."}

	out, err := execute(t, "ask", "--user", "alice", "--watch", `{"heartRate": "96"}`, "--save", "Am I ok?")

	require.NoError(t, err)
	require.NotNil(t, m.chat.lastReq.Telemetry)
	assert.Equal(t, domain.Reading("96"), m.chat.lastReq.Telemetry.HeartRate)
	assert.Contains(t, out, "personalized")

	require.Len(t, m.history.saved, 1)
	assert.Equal(t, "Am I ok?", m.history.saved[0].Question)
	assert.Equal(t, "Rest.", m.history.saved[0].Response)
	assert.True(t, m.history.saved[0].PersonalizedMode)
}

func TestAsk_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "ask", "--user", "bob", "--json", "hello")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "bob", got["user_id"])
	assert.Equal(t, false, got["personalized_mode"])
	assert.Equal(t, "answer to hello", got["final_response"])
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		setup func(m *testMocks)
		want  string
	}{
		{"missing user", []string{"ask", "q"}, nil, "--user is required"},
		{"bad watch json", []string{"ask", "--user", "a", "--watch", "{", "q"}, nil, "parsing --watch"},
		{"chat failure", []string{"ask", "--user", "a", "q"}, func(m *testMocks) { m.chat.err = domain.ErrLLMUnavailable }, "chat failed"},
		{"save failure", []string{"ask", "--user", "a", "--save", "q"}, func(m *testMocks) { m.history.err = errors.New("disk full") }, "saving chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupTestServices(t)
			if tt.setup != nil {
				tt.setup(m)
			}

			_, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// ==================== Twin ====================

func TestTwin_NoHistory(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "twin", "alice")

	require.NoError(t, err)
	assert.Contains(t, out, "Risk level:  None")
	assert.Contains(t, out, "Alert:       false")
	assert.NotContains(t, out, "Last chat")
}

func TestTwin_JSON(t *testing.T) {
	m := setupTestServices(t)
	last := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	m.twin.report = &domain.TwinReport{
		UserID:     "alice",
		Assessment: domain.NewRiskAssessment(domain.RiskHigh, "Repeated chest pain"),
		TotalChats: 4,
		LastChat:   &last,
	}

	out, err := execute(t, "twin", "--json", "alice")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "High", got["risk_level"])
	assert.Equal(t, true, got["show_alert"])
	assert.Equal(t, float64(4), got["total_chats"])
	assert.Equal(t, "2024-05-01T10:30:00Z", got["last_chat"])
}

func TestTwin_Error(t *testing.T) {
	m := setupTestServices(t)
	m.twin.err = errors.New("store down")

	_, err := execute(t, "twin", "alice")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "digital twin failed")
}

// ==================== History ====================

func TestHistory_Empty(t *testing.T) {
	m := setupTestServices(t)

	out, err := execute(t, "history", "alice")

	require.NoError(t, err)
	assert.Contains(t, out, "No chat history found.")
	assert.Equal(t, 50, m.history.lastLimit)
}

func TestHistory_ListsEntries(t *testing.T) {
	m := setupTestServices(t)
	m.history.entries = []domain.ChatEntry{
		{ID: "2", Question: "second", Response: "r2", CreatedAt: time.Now()},
		{ID: "1", Question: "first", Response: "r1", CreatedAt: time.Now().Add(-time.Hour)},
	}

	out, err := execute(t, "history", "-n", "2", "alice")

	require.NoError(t, err)
	assert.Equal(t, 2, m.history.lastLimit)
	assert.Contains(t, out, "[1]")
	assert.Contains(t, out, "Q: second")
	assert.Contains(t, out, "Q: first")
}

func TestHistory_JSON(t *testing.T) {
	m := setupTestServices(t)
	m.history.entries = []domain.ChatEntry{
		{ID: "1", Question: "q", Response: "r", PersonalizedMode: true, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	out, err := execute(t, "history", "--json", "alice")

	require.NoError(t, err)
	var got struct {
		UserID     string           `json:"user_id"`
		TotalChats int              `json:"total_chats"`
		Chats      []map[string]any `json:"chats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, 1, got.TotalChats)
	require.Len(t, got.Chats, 1)
	assert.Equal(t, "2024-01-02T03:04:05Z", got.Chats[0]["created_at"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "héé...", truncate("héééé", 3))
}

// ==================== Reindex ====================

func TestReindex(t *testing.T) {
	m := setupTestServices(t)
	m.index.rebuilt = 12

	out, err := execute(t, "reindex")

	require.NoError(t, err)
	assert.Contains(t, out, "Reindexed 12 chunks")
}

func TestReindex_Error(t *testing.T) {
	m := setupTestServices(t)
	m.index.err = domain.ErrEmbeddingUnavailable

	_, err := execute(t, "reindex")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

// ==================== Doctor ====================

func TestDoctor_AllPass(t *testing.T) {
	m := setupTestServices(t)
	m.services.Checks = []Check{
		{Name: "storage", Run: func(context.Context) error { return nil }},
		{Name: "llm", Run: func(context.Context) error { return nil }},
	}

	out, err := execute(t, "doctor")

	require.NoError(t, err)
	assert.Contains(t, out, "[ OK ] storage")
	assert.Contains(t, out, "[ OK ] llm")
}

func TestDoctor_ReportsFailures(t *testing.T) {
	m := setupTestServices(t)
	m.services.Checks = []Check{
		{Name: "storage", Run: func(context.Context) error { return nil }},
		{Name: "pdftotext", Run: func(context.Context) error { return errors.New("not found in PATH") }},
	}

	out, err := execute(t, "doctor")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 checks failed")
	assert.Contains(t, out, "[FAIL] pdftotext: not found in PATH")
}

// ==================== Chat ====================

func TestChat_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing user", []string{"chat"}, "--user is required"},
		{"bad watch json", []string{"chat", "--user", "alice", "--watch", "[1"}, "parsing --watch"},
		{"invalid user", []string{"chat", "--user", "global"}, "valid user ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestServices(t)

			_, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// ==================== MCP ====================

func TestNewMCPServer(t *testing.T) {
	m := setupTestServices(t)

	_, err := newMCPServer(m.services)
	require.Error(t, err, "retrieval is required")

	m.services.Retrieval = &mockRetrieval{}
	srv, err := newMCPServer(m.services)
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

type mockRetrieval struct{}

func (mockRetrieval) Retrieve(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}

// ==================== Watch ====================

func TestWatch_CreatesInboxAndStopsOnCancel(t *testing.T) {
	setupTestServices(t)
	dir := filepath.Join(t.TempDir(), "inbox")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"watch", "--settle", "10ms", dir})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetContext(context.Background())
	})

	err := rootCmd.ExecuteContext(ctx)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Watching "+dir)
	assert.DirExists(t, filepath.Join(dir, "users"))
	assert.DirExists(t, filepath.Join(dir, "global"))
}
