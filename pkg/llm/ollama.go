package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// OllamaHandler implements the LLM interface for Ollama's /api/chat.
type OllamaHandler struct {
	systemMsg string
	logger    *logrus.Logger
	ctx       context.Context
	apiKey    string
	ollamaURL string
	client    *http.Client
}

// NewOllamaHandler creates a new Ollama handler
func NewOllamaHandler(ctx context.Context, apiKey, ollamaURL, systemPrompt string, logger *logrus.Logger) *OllamaHandler {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OllamaHandler{
		systemMsg: systemPrompt,
		logger:    logger,
		ctx:       ctx,
		apiKey:    apiKey,
		ollamaURL: strings.TrimRight(ollamaURL, "/"),
		client:    http.DefaultClient,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

// Query queries the LLM with text and gets a response for Ollama
func (h *OllamaHandler) Query(ctx context.Context, model, text string, opts ...QueryOption) (string, error) {
	if ctx == nil {
		ctx = h.ctx
	}
	o := buildOptions(opts)
	reqBody := ollamaChatRequest{Model: model, Stream: false, Options: map[string]interface{}{}}
	if h.systemMsg != "" {
		reqBody.Messages = append(reqBody.Messages, ollamaMessage{Role: "system", Content: h.systemMsg})
	}
	reqBody.Messages = append(reqBody.Messages, ollamaMessage{Role: "user", Content: text})
	if o.Temperature > 0 {
		reqBody.Options["temperature"] = o.Temperature
	}
	if o.MaxTokens > 0 {
		reqBody.Options["num_predict"] = o.MaxTokens
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.ollamaURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, out.Error)
	}
	content := strings.TrimSpace(out.Message.Content)
	if content == "" {
		return "", errors.New("ollama returned an empty message")
	}
	h.logger.WithField("model", model).Debug("ollama chat done")
	return content, nil
}
