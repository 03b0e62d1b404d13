package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Ensure DigitalTwinService implements the interface.
var _ driving.DigitalTwinService = (*DigitalTwinService)(nil)

// DefaultTwinHistory is how many recent chats the summariser reads.
const DefaultTwinHistory = 50

// DefaultGenerationTimeout bounds a single generation call.
const DefaultGenerationTimeout = 60 * time.Second

const (
	riskLabel    = "Risk Level:"
	summaryLabel = "Summary:"
)

const twinPreamble = "You are a medical AI analyzing a patient's health conversation history to identify potential health risks."

const twinInstructions = `Based on this chat history, provide:
1. A SINGLE LINE risk assessment (if serious issues are detected)
2. Identified health concerns (if any)

IMPORTANT RULES:
- Only provide a risk assessment if there are SERIOUS health concerns detected
- If conversations show general wellness or minor issues, respond with: "No serious health concerns detected"
- Be concise and medical-accurate
- Do NOT recommend diagnosis
- Focus on observable patterns and trends from the conversations

Format your response as:
Risk Level: [None/Low/Moderate/High/Critical]
Summary: [One line summary of risks or "No serious health concerns detected"]
`

// BuildTwinPrompt renders chat entries, in the order given, as Q/A blocks
// inside the risk analysis frame.
func BuildTwinPrompt(entries []domain.ChatEntry) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		blocks[i] = "Q: " + e.Question + "\nA: " + e.Response
	}

	var b strings.Builder
	b.WriteString(twinPreamble)
	b.WriteString("\n\nPatient's Chat History:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(twinInstructions)
	return b.String()
}

// ParseRiskResponse scrapes the "Risk Level:" and "Summary:" lines from a
// model response. A line's value is the text after the first occurrence
// of its label; when several lines carry a label the last one wins.
//
// Only Low, Moderate, High and Critical (exact case) raise an alert. Any
// other level collapses to the no-concerns default, parsed summary included.
func ParseRiskResponse(raw string) domain.RiskAssessment {
	level := string(domain.RiskNone)
	summary := domain.SummaryNoConcerns

	for _, line := range strings.Split(raw, "\n") {
		if _, v, ok := strings.Cut(line, riskLabel); ok {
			level = strings.TrimSpace(v)
		}
		if _, v, ok := strings.Cut(line, summaryLabel); ok {
			summary = strings.TrimSpace(v)
		}
	}

	alerting, ok := domain.ParseAlertingLevel(level)
	if !ok {
		return domain.NoRisk(domain.SummaryNoConcerns)
	}
	return domain.NewRiskAssessment(alerting, summary)
}

// DigitalTwinSummarizer reduces chat history to a risk assessment.
type DigitalTwinSummarizer struct {
	llm        driven.LLMService
	maxHistory int
	timeout    time.Duration
}

// SummarizerOption configures the summariser.
type SummarizerOption func(*DigitalTwinSummarizer)

// WithMaxHistory caps how many of the most recent entries reach the prompt.
func WithMaxHistory(n int) SummarizerOption {
	return func(s *DigitalTwinSummarizer) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithSummaryTimeout bounds the generation call.
func WithSummaryTimeout(d time.Duration) SummarizerOption {
	return func(s *DigitalTwinSummarizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewDigitalTwinSummarizer creates a summariser. llm may be nil, in which
// case every non-empty history yields the "unable to analyze" default.
func NewDigitalTwinSummarizer(llm driven.LLMService, opts ...SummarizerOption) *DigitalTwinSummarizer {
	s := &DigitalTwinSummarizer{
		llm:        llm,
		maxHistory: DefaultTwinHistory,
		timeout:    DefaultGenerationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxHistory returns the history cap.
func (s *DigitalTwinSummarizer) MaxHistory() int {
	return s.maxHistory
}

// Summarize analyses chronologically ordered entries. It never fails:
// generation errors become the conservative default.
func (s *DigitalTwinSummarizer) Summarize(ctx context.Context, entries []domain.ChatEntry) domain.RiskAssessment {
	if len(entries) == 0 {
		return domain.NoRisk(domain.SummaryNoHistory)
	}
	if s.llm == nil {
		logger.Warn("Digital twin analysis skipped: %v", domain.ErrLLMUnavailable)
		return domain.NoRisk(domain.SummaryUnavailable)
	}

	if len(entries) > s.maxHistory {
		entries = entries[len(entries)-s.maxHistory:]
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.llm.Generate(genCtx, BuildTwinPrompt(entries), driven.GenerateOptions{})
	if err != nil {
		logger.Warn("Digital twin analysis failed: %v", err)
		return domain.NoRisk(domain.SummaryUnavailable)
	}

	assessment := ParseRiskResponse(raw)
	logger.Debug("Digital twin assessment: level=%s alert=%t", assessment.Level, assessment.ShowAlert)
	return assessment
}

// DigitalTwinService builds the digital twin view of a user.
type DigitalTwinService struct {
	store      driven.Store
	summarizer *DigitalTwinSummarizer
}

// NewDigitalTwinService creates a new digital twin service.
func NewDigitalTwinService(store driven.Store, summarizer *DigitalTwinSummarizer) *DigitalTwinService {
	return &DigitalTwinService{
		store:      store,
		summarizer: summarizer,
	}
}

// Report loads the user's recent history, releases the store session and
// then summarises it.
func (s *DigitalTwinService) Report(ctx context.Context, userID string) (*domain.TwinReport, error) {
	if !domain.ValidUserID(userID) {
		return nil, fmt.Errorf("%w: invalid user_id %q", domain.ErrInvalidInput, userID)
	}
	if s.store == nil {
		return nil, domain.ErrStorage
	}

	var (
		recent []domain.ChatEntry
		total  int
	)
	err := s.store.WithSession(ctx, func(sess driven.Session) error {
		var err error
		total, err = sess.Chats().CountChats(ctx, userID)
		if err != nil || total == 0 {
			return err
		}
		recent, err = sess.Chats().RecentChats(ctx, userID, s.summarizer.MaxHistory())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load chats: %w", domain.ErrStorage, err)
	}

	report := &domain.TwinReport{UserID: userID, TotalChats: total}
	if total == 0 || len(recent) == 0 {
		report.Assessment = domain.NoRisk(domain.SummaryNoChats)
		return report, nil
	}

	last := recent[0].CreatedAt
	report.LastChat = &last

	// RecentChats is newest first; the prompt reads oldest first.
	chronological := make([]domain.ChatEntry, len(recent))
	for i, e := range recent {
		chronological[len(recent)-1-i] = e
	}

	report.Assessment = s.summarizer.Summarize(ctx, chronological)
	return report, nil
}
