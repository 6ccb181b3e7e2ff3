package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"medrag/internal/resilience"
)

type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Client embeds text with a Gemini embedding model.
type Client struct {
	model string
	batch batchFunc
	guard *resilience.Guard
	close func() error

	mu        sync.Mutex
	dimension int
}

// Config configures the Gemini embeddings client.
type Config struct {
	APIKeyEnv      string
	Model          string
	Timeout        time.Duration
	RequestsPerMin int
	Logger         *slog.Logger
}

// NewClient connects to the Gemini API with the key found in cfg.APIKeyEnv.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	em := gc.EmbeddingModel(cfg.Model)
	c := newClient(cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		b := em.NewBatch()
		for _, t := range texts {
			b.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, err
		}
		out := make([][]float32, 0, len(resp.Embeddings))
		for _, e := range resp.Embeddings {
			if e == nil {
				return nil, errors.New("no embedding returned")
			}
			out = append(out, e.Values)
		}
		return out, nil
	})
	c.close = gc.Close
	return c, nil
}

func newClient(cfg Config, fn batchFunc) *Client {
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		model: cfg.Model,
		batch: fn,
		guard: resilience.New(resilience.Config{
			Name:           "gemini-embeddings",
			RequestsPerMin: cfg.RequestsPerMin,
			Timeout:        t,
			Logger:         cfg.Logger,
		}),
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "gemini/" + c.model }

// Prepare is not required for remote embedding.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the vector size seen in the first response, 0 before.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed returns one vector per text in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out, err := c.guard.Do(ctx, "gemini embeddings", func(ctx context.Context) (any, error) {
		return c.batch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	raw := out.([][]float32)
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(raw))
	}
	vecs := make([][]float64, len(raw))
	for i, r := range raw {
		v := make([]float64, len(r))
		for j, x := range r {
			v[j] = float64(x)
		}
		vecs[i] = v
	}
	c.mu.Lock()
	if c.dimension == 0 && len(vecs) > 0 {
		c.dimension = len(vecs[0])
	}
	c.mu.Unlock()
	return vecs, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	if c.close != nil {
		return c.close()
	}
	return nil
}
