package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
	"medrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors", "vectors.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	return db, path
}

func TestUpsertSearchPersist(t *testing.T) {
	ctx := context.Background()
	db, path := setupTestDB(t)
	assert.Equal(t, path, db.Path())

	s := db.Collection("cardiologist")
	require.NoError(t, s.Init(ctx, 2))
	chunks := []domain.Chunk{
		{DocumentID: "A/mi", ChunkID: "A/mi/0001", Index: 1, Title: "MI", Keywords: []string{"troponin"}, Text: "first"},
		{DocumentID: "A/mi", ChunkID: "A/mi/0002", Index: 2, Title: "MI", Text: "second"},
		{DocumentID: "A/hf", ChunkID: "A/hf/0001", Index: 1, Title: "HF", Text: "third"},
	}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float64{{1, 0}, {0.5, 0.5}, {1, 0}}))

	got, err := s.Search(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, chunks[0], got[0].Chunk)
	assert.Equal(t, "A/hf/0001", got[1].Chunk.ChunkID, "ties keep insertion order")
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)

	other := db.Collection("surgeon")
	n, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Re-open and find the same data.
	require.NoError(t, db.Close())
	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
	s2 := db2.Collection("cardiologist")
	require.NoError(t, s2.Init(ctx, 2))
	n, err = s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpsertReplacesAndKeepsSequence(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	s := db.Collection("c")
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}, {ChunkID: "b"}}, [][]float64{{1}, {1}}))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a", Text: "updated"}}, [][]float64{{1}}))

	got, err := s.Search(ctx, []float64{1}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "updated", got[0].Chunk.Text)
	assert.Equal(t, "b", got[1].Chunk.ChunkID)
}

func TestInitWithNewDimensionResets(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	s := db.Collection("c")
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}}, [][]float64{{1, 1}}))

	require.NoError(t, s.Init(ctx, 3))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}}, [][]float64{{1, 1}}), vectorstore.ErrDimension)
}

func TestEmbeddingEncoding(t *testing.T) {
	vec := []float64{0.5, -1.25, 3}
	got, err := DecodeEmbedding(EncodeEmbedding(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = DecodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestFingerprintPersistsUntilReset(t *testing.T) {
	ctx := context.Background()
	db, path := setupTestDB(t)
	s := db.Collection("cardio")

	fp, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)
	assert.Error(t, s.SetFingerprint(ctx, "early"), "collection must be initialized first")

	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.SetFingerprint(ctx, "v1"))

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	fp, err = reopened.Collection("cardio").Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", fp)
	fp, err = reopened.Collection("derma").Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)

	require.NoError(t, s.Init(ctx, 3))
	fp, err = s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp, "a new dimension forgets the fingerprint")

	require.NoError(t, s.SetFingerprint(ctx, "v2"))
	require.NoError(t, s.Clear(ctx))
	fp, err = s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)
}

func TestOpenAddsFingerprintColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE collections (name TEXT PRIMARY KEY, dimension INTEGER NOT NULL);
		INSERT INTO collections (name, dimension) VALUES ('cardio', 2);`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()
	fp, err := db.Collection("cardio").Fingerprint(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fp)
}
