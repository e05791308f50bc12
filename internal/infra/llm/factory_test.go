package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioapp/api/internal/config"
)

func TestNewProvider(t *testing.T) {
	t.Run("claude", func(t *testing.T) {
		p, err := NewProvider(&config.LLMConfig{Provider: "claude", AnthropicKey: "key"})
		require.NoError(t, err)
		assert.Equal(t, "claude", p.Name())
	})

	t.Run("claude without key", func(t *testing.T) {
		_, err := NewProvider(&config.LLMConfig{Provider: "claude"})
		assert.ErrorIs(t, err, ErrProviderNotConfigured)
	})

	t.Run("ollama", func(t *testing.T) {
		p, err := NewProvider(&config.LLMConfig{Provider: "ollama", OllamaBaseURL: "http://localhost:11434"})
		require.NoError(t, err)
		assert.Equal(t, "ollama", p.Name())
	})

	t.Run("ollama without base url", func(t *testing.T) {
		_, err := NewProvider(&config.LLMConfig{Provider: "ollama"})
		assert.ErrorIs(t, err, ErrProviderNotConfigured)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewProvider(&config.LLMConfig{Provider: "gpt"})
		assert.ErrorIs(t, err, ErrInvalidProvider)
	})
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "system", Content: "be kind"},
	})

	assert.Equal(t, "be brief\nbe kind", system)
	require.Len(t, rest, 2)
	assert.Equal(t, "user", rest[0].Role)
	assert.Equal(t, "assistant", rest[1].Role)
}

func TestClaudeChat(t *testing.T) {
	var gotReq claudeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, claudeAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(claudeResponse{
			Model:      "claude-sonnet-4-20250514",
			StopReason: "end_turn",
			Content:    []contentBlock{{Type: "text", Text: "hi "}, {Type: "text", Text: "there"}},
			Usage:      claudeUsage{InputTokens: 12, OutputTokens: 4},
		})
	}))
	defer server.Close()

	p, err := NewClaudeProvider(ClaudeConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hello"},
		},
		MaxTokens: 256,
	})
	require.NoError(t, err)

	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 4, resp.CompletionTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, "be brief", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, 256, gotReq.MaxTokens)
}

func TestClaudeChatUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer server.Close()

	p, err := NewClaudeProvider(ClaudeConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
}

func TestOllamaChat(t *testing.T) {
	var gotReq ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:      "llama3.1",
			Message:    ollamaMessage{Role: "assistant", Content: "hello"},
			DoneReason: "stop",
			EvalCount:  3,
		})
	}))
	defer server.Close()

	p, err := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 3, resp.CompletionTokens)
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 1)
}

func TestDisabledProvider(t *testing.T) {
	p := Disabled(nil)
	assert.Equal(t, "disabled", p.Name())

	_, err := p.Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	cause := errors.New("no key")
	_, err = Disabled(cause).Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, cause)
}
