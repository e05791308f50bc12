// Package llm provides abstractions for the chat completion backends.
package llm

import (
	"context"
	"fmt"
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the interface for chat backends (Claude, Ollama).
type Provider interface {
	// Chat sends a conversation and returns the assistant's reply.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Name returns the provider name for logging.
	Name() string

	// Model returns the model being used.
	Model() string
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// MaxTokens is the maximum tokens in the response.
	MaxTokens int

	// Temperature controls randomness (0.0-1.0).
	Temperature float64
}

// ChatResponse represents a completion from the backend.
type ChatResponse struct {
	// Content is the generated reply.
	Content string

	// PromptTokens and CompletionTokens are usage counts when the
	// backend reports them.
	PromptTokens     int
	CompletionTokens int

	// Model is the actual model used.
	Model string

	// StopReason is provider-specific stop information.
	StopReason string
}

// Errors
var (
	ErrProviderNotConfigured = fmt.Errorf("llm provider not configured")
	ErrInvalidProvider       = fmt.Errorf("invalid llm provider")
	ErrRateLimited           = fmt.Errorf("llm rate limited")
	ErrContextCanceled       = fmt.Errorf("context canceled")
)

// Disabled returns a Provider whose Chat always fails with err. It
// stands in when no backend is configured so the rest of the service
// keeps running; only the chat endpoint errors.
func Disabled(err error) Provider {
	if err == nil {
		err = ErrProviderNotConfigured
	}
	return disabledProvider{err: err}
}

type disabledProvider struct{ err error }

func (d disabledProvider) Chat(context.Context, ChatRequest) (*ChatResponse, error) {
	return nil, d.err
}

func (disabledProvider) Name() string  { return "disabled" }
func (disabledProvider) Model() string { return "" }

// splitSystem separates system turns from the conversation. Claude takes
// the system prompt as a top-level field; Ollama accepts it inline but
// gets the same normalized shape.
func splitSystem(messages []Message) (system string, rest []Message) {
	rest = make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
