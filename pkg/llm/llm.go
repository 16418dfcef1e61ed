package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// LLM represents a generic interface for interacting with LLMs.
// Every Query is a single-turn exchange: the handler's system prompt plus text.
type LLM interface {
	// Query queries the LLM with text and gets a response
	Query(ctx context.Context, model, text string, opts ...QueryOption) (string, error)
}

// QueryOptions tunes a single request.
type QueryOptions struct {
	Temperature float32
	MaxTokens   int
}

type QueryOption func(*QueryOptions)

func WithTemperature(t float32) QueryOption {
	return func(o *QueryOptions) { o.Temperature = t }
}

func WithMaxTokens(n int) QueryOption {
	return func(o *QueryOptions) { o.MaxTokens = n }
}

func buildOptions(opts []QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New picks a handler by provider name: "openai" (any OpenAI compatible
// endpoint) or "ollama".
func New(ctx context.Context, provider, apiKey, endpoint, systemPrompt string, logger *logrus.Logger) (LLM, error) {
	switch strings.ToLower(provider) {
	case "", "openai":
		return NewLLMHandler(ctx, apiKey, endpoint, systemPrompt, logger), nil
	case "ollama":
		return NewOllamaHandler(ctx, apiKey, endpoint, systemPrompt, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
