package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService answers questions from user and global context.
type ChatService struct {
	retrieval driving.RetrievalService
	llm       driven.LLMService
	topK      int
	timeout   time.Duration
	genOpts   driven.GenerateOptions
}

// ChatOption configures the chat service.
type ChatOption func(*ChatService)

// WithTopK sets how many chunks are retrieved from each partition.
func WithTopK(k int) ChatOption {
	return func(s *ChatService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithGenerationTimeout bounds the generation call.
func WithGenerationTimeout(d time.Duration) ChatOption {
	return func(s *ChatService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithGenerateOptions sets the options passed to every generation call.
func WithGenerateOptions(opts driven.GenerateOptions) ChatOption {
	return func(s *ChatService) {
		s.genOpts = opts
	}
}

// NewChatService creates a new chat service. llm may be nil, in which
// case Chat returns domain.ErrLLMUnavailable.
func NewChatService(retrieval driving.RetrievalService, llm driven.LLMService, opts ...ChatOption) *ChatService {
	s := &ChatService{
		retrieval: retrieval,
		llm:       llm,
		topK:      driving.DefaultTopK,
		timeout:   DefaultGenerationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat retrieves both contexts concurrently, assembles the prompt and
// generates the answer. A failed retrieval leg contributes no context
// instead of failing the request.
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatAnswer, error) {
	if !domain.ValidUserID(req.UserID) {
		return nil, fmt.Errorf("%w: invalid user_id %q", domain.ErrInvalidInput, req.UserID)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	logger.Section("Chat")
	logger.Debug("User: %s, question: %q", req.UserID, req.Question)

	var userCtx, globalCtx []string
	var g errgroup.Group

	g.Go(func() error {
		userCtx = s.retrieveLeg(ctx, req.Question, req.UserID)
		return ctx.Err()
	})
	g.Go(func() error {
		globalCtx = s.retrieveLeg(ctx, req.Question, domain.GlobalScope.String())
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	prompt := AssembleMedicalPrompt(req.Question, userCtx, globalCtx, req.Telemetry)
	logger.Debug("Prompt assembled: %d bytes, user chunks=%d, global chunks=%d",
		len(prompt), len(userCtx), len(globalCtx))

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.llm.Generate(genCtx, prompt, s.genOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	return &domain.ChatAnswer{
		UserID:       req.UserID,
		Personalized: len(userCtx) > 0,
		Response:     response,
	}, nil
}

func (s *ChatService) retrieveLeg(ctx context.Context, question, partition string) []string {
	if s.retrieval == nil {
		return nil
	}
	texts, err := s.retrieval.Retrieve(ctx, question, partition, s.topK)
	if err != nil {
		logger.Warn("Retrieval from partition %q failed: %v", partition, err)
		return nil
	}
	return texts
}
