// Package gemini implements llm.Completer on the Gemini generative API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"

	"medrag/internal/llm"
	"medrag/internal/resilience"
)

var _ llm.Completer = (*Client)(nil)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

type generateFunc func(ctx context.Context, system, user string) (string, error)

// Config configures the Gemini chat client.
type Config struct {
	APIKeyEnv       string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
	RequestsPerMin  int
	Logger          *slog.Logger
}

// Client generates text with a Gemini model.
type Client struct {
	model    string
	generate generateFunc
	guard    *resilience.Guard
	close    func() error
}

// NewClient connects to the Gemini API with the key found in cfg.APIKeyEnv.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c := newClient(cfg, func(ctx context.Context, system, user string) (string, error) {
		model := gc.GenerativeModel(cfg.Model)
		model.SetTemperature(cfg.Temperature)
		if cfg.MaxOutputTokens > 0 {
			model.SetMaxOutputTokens(cfg.MaxOutputTokens)
		}
		if system != "" {
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
		}
		resp, err := model.GenerateContent(ctx, genai.Text(user))
		if err != nil {
			return "", err
		}
		return responseText(resp)
	})
	c.close = gc.Close
	return c, nil
}

func newClient(cfg Config, fn generateFunc) *Client {
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Client{
		model:    cfg.Model,
		generate: fn,
		guard: resilience.New(resilience.Config{
			Name:           "gemini-chat",
			RequestsPerMin: cfg.RequestsPerMin,
			Timeout:        t,
			Logger:         cfg.Logger,
		}),
	}
}

// Complete runs one generation under the client's guard.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := otel.Tracer("gemini-client").Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.model),
		attribute.Int("gemini.prompt_chars", len(system)+len(user)),
	)

	out, err := c.guard.Do(ctx, "gemini generate", func(ctx context.Context) (any, error) {
		return c.generate(ctx, system, user)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true), attribute.String("gemini.error_message", err.Error()))
		return "", err
	}
	span.SetAttributes(attribute.Bool("gemini.success", true))
	return out.(string), nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	if c.close != nil {
		return c.close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", errors.New("gemini: empty candidate")
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
