package gemini

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"medrag/internal/domain"
)

func TestEmbedConvertsVectors(t *testing.T) {
	c := newClient(Config{}, func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(i), 0.5}
		}
		return out, nil
	})
	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0.5}, {1, 0.5}, {2, 0.5}}, vecs)
	assert.Equal(t, 2, c.Dimension())
	assert.NoError(t, c.Close())
}

func TestEmbedMapsQuotaErrors(t *testing.T) {
	c := newClient(Config{}, func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"}
	})
	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestEmbedTimeout(t *testing.T) {
	c := newClient(Config{Timeout: 20 * time.Millisecond}, func(ctx context.Context, texts []string) ([][]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := c.Embed(context.Background(), []string{"a"})
	assert.True(t, domain.IsTransient(err))
}

func TestEmbedCountMismatch(t *testing.T) {
	c := newClient(Config{}, func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	})
	_, err := c.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("EMPTY_GEMINI_KEY", "")
	_, err := NewClient(context.Background(), Config{APIKeyEnv: "EMPTY_GEMINI_KEY"})
	assert.Error(t, err)
}
