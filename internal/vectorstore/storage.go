// Package vectorstore defines the nearest-neighbour collaborator and the
// scoring helpers shared by its brute-force implementations.
package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"

	"medrag/internal/domain"
)

var (
	// ErrDimension is returned for vectors whose size differs from the store's.
	ErrDimension = errors.New("vector dimension mismatch")
	// ErrLength is returned when chunks and vectors differ in count.
	ErrLength = errors.New("chunks and vectors length mismatch")
)

// Storage persists the vectors of one collection and supports similarity
// search over them.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	// Fingerprint returns the corpus fingerprint recorded by SetFingerprint,
	// empty when none is recorded. Clear and a dimension change forget it.
	Fingerprint(ctx context.Context) (string, error)
	SetFingerprint(ctx context.Context, fp string) error
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores every vector against query and returns the best topK entries
// by descending similarity. Equal scores keep insertion order.
func Rank(query []float64, chunks []domain.Chunk, vectors [][]float64, topK int) []domain.SearchResult {
	results := make([]domain.SearchResult, len(vectors))
	for i, v := range vectors {
		results[i] = domain.SearchResult{Chunk: chunks[i], Score: Cosine(query, v)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}
