// Package app holds the application services behind the HTTP handlers.
package app

import (
	"context"
	"fmt"

	"github.com/folioapp/api/internal/infra/llm"
	"github.com/folioapp/api/pkg/logger"
)

// systemPrompt frames the assistant for visitors of the portfolio site.
const systemPrompt = `You are the assistant on a personal portfolio website.
Answer questions about the site owner's work, projects and experience.
Keep replies short and conversational. If you do not know something,
say so instead of guessing.`

// ChatService produces assistant replies for visitor conversations.
type ChatService struct {
	provider  llm.Provider
	logger    *logger.Logger
	maxTokens int
}

// NewChatService creates a chat service on top of the configured backend.
func NewChatService(provider llm.Provider, maxTokens int, log *logger.Logger) *ChatService {
	return &ChatService{
		provider:  provider,
		logger:    log,
		maxTokens: maxTokens,
	}
}

// Respond sends the conversation to the backend and returns the reply.
// The persona system prompt is prepended; client-supplied system turns
// are kept after it.
func (s *ChatService) Respond(ctx context.Context, messages []llm.Message) (string, error) {
	conversation := make([]llm.Message, 0, len(messages)+1)
	conversation = append(conversation, llm.Message{Role: "system", Content: systemPrompt})
	conversation = append(conversation, messages...)

	resp, err := s.provider.Chat(ctx, llm.ChatRequest{
		Messages:  conversation,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	s.logger.WithContext(ctx).Debug("chat completion",
		"provider", s.provider.Name(),
		"model", resp.Model,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
	)

	return resp.Content, nil
}
