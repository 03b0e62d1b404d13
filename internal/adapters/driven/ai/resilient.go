package ai

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Retry defaults for provider calls.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 200 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// Ensure wrappers implement the interfaces.
var (
	_ driven.EmbeddingService = (*ResilientEmbedding)(nil)
	_ driven.LLMService       = (*ResilientLLM)(nil)
)

// RetryPolicy throttles outbound calls and retries rate-limited or
// transient failures.
type RetryPolicy struct {
	// Limiter paces requests. Nil disables client-side throttling.
	Limiter *rate.Limiter

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay doubles on each retry, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewRetryPolicy creates a policy allowing rps requests per second.
// rps <= 0 disables throttling.
func NewRetryPolicy(rps float64, burst int) RetryPolicy {
	p := RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		p.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return p
}

// backoff returns the delay before retry number attempt (0-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if d <= 0 || d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// retryable reports whether err is worth another attempt. Nothing is
// retried once the caller's context is done.
func retryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrTransient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// do runs fn, waiting on the limiter before every attempt and retrying
// while it fails with a retryable error.
func (p RetryPolicy) do(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if !retryable(ctx, err) || attempt >= p.MaxRetries {
			return err
		}

		delay := p.backoff(attempt)
		logger.Debug("%s failed (%v), retrying in %s (attempt %d/%d)", op, err, delay, attempt+1, p.MaxRetries)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ResilientEmbedding wraps an EmbeddingService with a RetryPolicy.
type ResilientEmbedding struct {
	driven.EmbeddingService
	policy RetryPolicy
}

// NewResilientEmbedding wraps svc.
func NewResilientEmbedding(svc driven.EmbeddingService, policy RetryPolicy) *ResilientEmbedding {
	return &ResilientEmbedding{EmbeddingService: svc, policy: policy}
}

// Embed generates a vector embedding for the given text.
func (r *ResilientEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.policy.do(ctx, "embed", func() error {
		var err error
		out, err = r.EmbeddingService.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch generates embeddings for multiple texts.
func (r *ResilientEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.policy.do(ctx, "embed batch", func() error {
		var err error
		out, err = r.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// ResilientLLM wraps an LLMService with a RetryPolicy.
type ResilientLLM struct {
	driven.LLMService
	policy RetryPolicy
}

// NewResilientLLM wraps svc.
func NewResilientLLM(svc driven.LLMService, policy RetryPolicy) *ResilientLLM {
	return &ResilientLLM{LLMService: svc, policy: policy}
}

// Generate produces a completion for a single prompt.
func (r *ResilientLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var out string
	err := r.policy.do(ctx, "generate", func() error {
		var err error
		out, err = r.LLMService.Generate(ctx, prompt, opts)
		return err
	})
	return out, err
}
