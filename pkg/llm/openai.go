package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// LLMHandler talks to an OpenAI compatible chat completion API.
type LLMHandler struct {
	systemMsg string
	client    *openai.Client
	logger    *logrus.Logger
	ctx       context.Context
}

// NewLLMHandler creates a handler. An empty endpoint keeps the OpenAI default.
func NewLLMHandler(ctx context.Context, apiKey, endpoint, systemPrompt string, logger *logrus.Logger) *LLMHandler {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = strings.TrimRight(endpoint, "/")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LLMHandler{
		systemMsg: systemPrompt,
		client:    openai.NewClientWithConfig(cfg),
		logger:    logger,
		ctx:       ctx,
	}
}

// Query sends one system + user exchange and returns the first choice.
func (h *LLMHandler) Query(ctx context.Context, model, text string, opts ...QueryOption) (string, error) {
	if ctx == nil {
		ctx = h.ctx
	}
	o := buildOptions(opts)
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if h.systemMsg != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: h.systemMsg})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	})
	if err != nil {
		h.logger.WithError(err).WithField("model", model).Warn("chat completion failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	h.logger.WithFields(logrus.Fields{
		"model":  model,
		"tokens": resp.Usage.TotalTokens,
	}).Debug("chat completion done")
	return content, nil
}
