// Package openai provides a chat-completion client for OpenAI-compatible APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"medrag/internal/llm"
	"medrag/internal/resilience"
)

// Ensure Client implements the interface.
var _ llm.Completer = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the chat client.
type Config struct {
	// BaseURL is the API base URL; compatible servers (Ollama, Azure) work too.
	BaseURL string
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	// RequestsPerMin caps the request rate; 0 disables the limiter.
	RequestsPerMin int
	Logger         *slog.Logger
}

// Client calls /chat/completions.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	guard   *resilience.Guard
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a chat client. A key is required for api.openai.com only.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" && strings.Contains(cfg.BaseURL, "api.openai.com") {
		return nil, fmt.Errorf("openai: API key is required (env %s)", cfg.APIKeyEnv)
	}
	return &Client{
		client:  &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  key,
		model:   cfg.Model,
		guard: resilience.New(resilience.Config{
			Name:           "openai-chat",
			RequestsPerMin: cfg.RequestsPerMin,
			Timeout:        cfg.Timeout,
			Logger:         cfg.Logger,
		}),
	}, nil
}

// Complete sends a system and a user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	out, err := c.guard.Do(ctx, "openai chat", func(ctx context.Context) (any, error) {
		return c.chatCompletion(ctx, system, user)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Client) chatCompletion(ctx context.Context, system, user string) (string, error) {
	var msgs []chatCompletionMsg
	if system != "" {
		msgs = append(msgs, chatCompletionMsg{Role: "system", Content: system})
	}
	msgs = append(msgs, chatCompletionMsg{Role: "user", Content: user})

	jsonBody, err := json.Marshal(chatCompletionRequest{Model: c.model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &resilience.StatusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}
