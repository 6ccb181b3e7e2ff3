package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2}, []float64{2, 4}), 1e-12)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 1}))
}

func TestRankStableTies(t *testing.T) {
	chunks := []domain.Chunk{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}, {ChunkID: "d"}}
	vectors := [][]float64{{1, 0}, {0, 1}, {1, 0}, {2, 0}}
	got := Rank([]float64{1, 0}, chunks, vectors, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Chunk.ChunkID)
	assert.Equal(t, "c", got[1].Chunk.ChunkID)
	assert.Equal(t, "d", got[2].Chunk.ChunkID)

	assert.Len(t, Rank([]float64{1, 0}, chunks, vectors, 10), 4)
}
