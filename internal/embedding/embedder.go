// Package embedding holds the embedders that turn chunk and query text into
// vectors. The tfidf subpackage runs locally; openai and gemini call remote
// services.
package embedding

import (
	"context"
	"fmt"

	"medrag/internal/domain"
)

// Batched splits Embed calls into requests of at most size texts.
type Batched struct {
	domain.Embedder
	size int
}

// NewBatched wraps emb. A non-positive size sends every call in one request.
func NewBatched(emb domain.Embedder, size int) *Batched {
	return &Batched{Embedder: emb, size: size}
}

// Embed embeds texts batch by batch, preserving order. It stops at the first
// failing batch.
func (b *Batched) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if b.size <= 0 || len(texts) <= b.size {
		return b.Embedder.Embed(ctx, texts)
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+b.size, len(texts))
		vecs, err := b.Embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}
