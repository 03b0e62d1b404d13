package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// mockEmbedder embeds text as normalised letter frequencies.
type mockEmbedder struct {
	mu         sync.Mutex
	err        error
	calls      int
	batchCalls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return letterVector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 26 }
func (m *mockEmbedder) ModelName() string { return "letters" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error { return nil }

func letterVector(text string) []float32 {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// mockIndex is a brute-force partitioned index.
type mockIndex struct {
	mu         sync.Mutex
	partitions map[string][]driven.VectorRecord
	appendErr  error
	resets     int
}

func newMockIndex() *mockIndex {
	return &mockIndex{partitions: make(map[string][]driven.VectorRecord)}
}

func (m *mockIndex) Append(_ context.Context, partition string, records []driven.VectorRecord) (int, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partitions[partition] = append(m.partitions[partition], records...)
	return len(records), nil
}

func (m *mockIndex) Search(_ context.Context, partition string, query []float32, k int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.partitions[partition]
	hits := make([]driven.VectorHit, 0, len(records))
	for _, r := range records {
		var dot float64
		for i := range query {
			dot += float64(query[i] * r.Embedding[i])
		}
		hits = append(hits, driven.VectorHit{ChunkID: r.ChunkID, Text: r.Text, Similarity: dot})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *mockIndex) Count(_ context.Context, partition string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.partitions[partition]), nil
}

func (m *mockIndex) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.partitions = make(map[string][]driven.VectorRecord)
	return nil
}

func (m *mockIndex) Close() error { return nil }

// mockLLM records prompts and returns a canned response.
type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	block    bool
	prompts  []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) ModelName() string { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error { return nil }

// mockStore keeps everything in slices and is its own session.
type mockStore struct {
	mu       sync.Mutex
	docs     []domain.Document
	chunks   []domain.Chunk
	chats    []domain.ChatEntry
	err      error
	sessions int
	open     int
}

func (m *mockStore) WithSession(_ context.Context, fn func(driven.Session) error) error {
	m.mu.Lock()
	m.sessions++
	m.open++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.open--
		m.mu.Unlock()
	}()
	if m.err != nil {
		return m.err
	}
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) Documents() driven.DocumentStore { return m }
func (m *mockStore) Chats() driven.ChatStore { return m }

func (m *mockStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *mockStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteDocument(_ context.Context, _ string) error { return nil }

func (m *mockStore) ListDocuments(_ context.Context, scope domain.Scope) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range m.docs {
		if d.Scope == scope {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) ListAllChunks(_ context.Context) ([]domain.Chunk, error) {
	return append([]domain.Chunk(nil), m.chunks...), nil
}

func (m *mockStore) SaveChat(_ context.Context, entry *domain.ChatEntry) error {
	m.chats = append(m.chats, *entry)
	return nil
}

func (m *mockStore) ListChats(_ context.Context, userID string) ([]domain.ChatEntry, error) {
	var out []domain.ChatEntry
	for _, c := range m.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) RecentChats(ctx context.Context, userID string, limit int) ([]domain.ChatEntry, error) {
	all, _ := m.ListChats(ctx, userID)
	out := make([]domain.ChatEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *mockStore) CountChats(ctx context.Context, userID string) (int, error) {
	all, _ := m.ListChats(ctx, userID)
	return len(all), nil
}

// mockRetrieval returns fixed texts per partition.
type mockRetrieval struct {
	mu      sync.Mutex
	results map[string][]string
	errs    map[string]error
	calls   []string
}

func (m *mockRetrieval) Retrieve(_ context.Context, _ string, partition string, k int) ([]string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, partition)
	m.mu.Unlock()
	if err := m.errs[partition]; err != nil {
		return nil, err
	}
	texts := m.results[partition]
	if len(texts) > k {
		texts = texts[:k]
	}
	return texts, nil
}

// mockNormalisers returns the raw content as text.
type mockNormalisers struct {
	err error
}

func (m *mockNormalisers) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driven.NormaliseResult{Document: domain.Document{Content: string(raw.Content)}}, nil
}

func (m *mockNormalisers) Register(_ driven.Normaliser) {}
func (m *mockNormalisers) SupportedMIMETypes() []string { return []string{"text/plain"} }

// lineChunker makes one chunk per non-empty line.
type lineChunker struct{}

func (lineChunker) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, line := range strings.Split(doc.Content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{DocumentID: doc.ID, Content: line})
	}
	return chunks, nil
}
