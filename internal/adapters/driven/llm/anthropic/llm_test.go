package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "Risk Level: "}, {"type": "text", "text": "Low"}]}`))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := svc.Generate(context.Background(), "analyse", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Risk Level: Low", out)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, []messagesMessage{{Role: "user", Content: "analyse"}}, got.Messages)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		rate      bool
		transient bool
	}{
		{"api error", http.StatusBadRequest, `{"error": {"type": "invalid_request_error", "message": "bad"}}`, false, false},
		{"rate limited", http.StatusTooManyRequests, `{"error": {"type": "rate_limit_error", "message": "slow"}}`, true, false},
		{"overloaded", 529, `{"error": {"type": "overloaded_error", "message": "busy"}}`, false, true},
		{"empty content", http.StatusOK, `{"content": []}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc, err := NewLLMService(Config{APIKey: "key", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})

			require.Error(t, err)
			assert.Equal(t, tt.rate, errors.Is(err, domain.ErrRateLimited))
			assert.Equal(t, tt.transient, errors.Is(err, domain.ErrTransient))
		})
	}
}
