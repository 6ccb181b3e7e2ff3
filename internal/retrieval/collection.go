// Package retrieval indexes a specialist's chunk corpus and ranks it against
// questions.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"medrag/internal/domain"
	"medrag/internal/vectorstore"
)

// DefaultTopK is the number of chunks handed to answer generation.
const DefaultTopK = 3

// Collection is one specialist's searchable corpus: an embedder calibrated
// on the corpus and the vector store holding its entries.
type Collection struct {
	name     string
	embedder domain.Embedder
	store    vectorstore.Storage
	logger   *slog.Logger

	mu     sync.RWMutex
	chunks []domain.Chunk
}

// NewCollection creates an empty collection. The embedder must not be shared
// with another collection when it learns from the corpus (TF-IDF).
func NewCollection(name string, emb domain.Embedder, store vectorstore.Storage, logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection{name: name, embedder: emb, store: store, logger: logger.With("collection", name)}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Size returns the number of entries indexed by the last successful Build.
func (c *Collection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// Build calibrates the embedder on chunks and indexes them. Unless rebuild is
// set, a store whose recorded fingerprint matches this corpus, embedder and
// dimension is reused without embedding the corpus again. It returns the
// number of entries embedded.
func (c *Collection) Build(ctx context.Context, chunks []domain.Chunk, rebuild bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(chunks) == 0 {
		return 0, fmt.Errorf("collection %s: %w", c.name, domain.ErrNoChunks)
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := c.embedder.Prepare(texts); err != nil {
		return 0, fmt.Errorf("prepare %s embedder: %w", c.embedder.Name(), err)
	}
	c.chunks = nil

	if !rebuild {
		reused, err := c.reuse(ctx, chunks)
		if err != nil {
			return 0, err
		}
		if reused {
			c.logger.Debug("reusing stored vectors", "entries", len(chunks))
			c.chunks = chunks
			return 0, nil
		}
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed corpus: got %d vectors for %d entries", len(vectors), len(chunks))
	}
	if err := c.store.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear store: %w", err)
	}
	if err := c.store.Init(ctx, len(vectors[0])); err != nil {
		return 0, fmt.Errorf("init store: %w", err)
	}
	if err := c.store.Upsert(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	if err := c.store.SetFingerprint(ctx, Fingerprint(c.embedder.Name(), len(vectors[0]), chunks)); err != nil {
		return 0, fmt.Errorf("record fingerprint: %w", err)
	}
	c.chunks = chunks
	c.logger.Info("collection indexed", "entries", len(chunks), "embedder", c.embedder.Name(), "dimension", len(vectors[0]))
	return len(chunks), nil
}

func (c *Collection) reuse(ctx context.Context, chunks []domain.Chunk) (bool, error) {
	dim := c.embedder.Dimension()
	if dim == 0 {
		vecs, err := c.embedder.Embed(ctx, []string{chunks[0].Text})
		if err != nil {
			return false, fmt.Errorf("probe embedding dimension: %w", err)
		}
		if len(vecs) == 0 {
			return false, nil
		}
		dim = len(vecs[0])
	}
	if err := c.store.Init(ctx, dim); err != nil {
		return false, fmt.Errorf("init store: %w", err)
	}
	n, err := c.store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count store: %w", err)
	}
	if n != len(chunks) {
		return false, nil
	}
	stored, err := c.store.Fingerprint(ctx)
	if err != nil {
		return false, fmt.Errorf("read fingerprint: %w", err)
	}
	return stored != "" && stored == Fingerprint(c.embedder.Name(), dim, chunks), nil
}

// Fingerprint identifies an indexed corpus: the embedder, the vector
// dimension and every entry's id, title and text in order. A corpus-calibrated
// embedder derives its vocabulary from the texts, so equal fingerprints mean
// equal vector spaces.
func Fingerprint(embedder string, dimension int, chunks []domain.Chunk) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00", embedder, dimension, len(chunks))
	for _, ch := range chunks {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", ch.ChunkID, ch.Title, ch.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Retrieve returns the k entries most similar to query, best first; equal
// scores keep corpus order. A query the embedder cannot place (zero vector or
// no positive score) falls back to lexical overlap ranking.
func (c *Collection) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	vecs, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 || isZero(vecs[0]) {
		return lexicalSearch(query, c.chunks, k), nil
	}
	res, err := c.store.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.name, err)
	}
	for _, r := range res {
		if r.Score > 1e-9 {
			return res, nil
		}
	}
	if len(c.chunks) > 0 {
		return lexicalSearch(query, c.chunks, k), nil
	}
	return res, nil
}

// Context joins the bodies of results in rank order with blank lines.
func Context(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
