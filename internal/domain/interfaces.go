package domain

import "context"

// Document is one source article, identified by the slug of its source file.
type Document struct {
	ID       string // <category>/<slug>
	Category string
	Slug     string
	Path     string // source path the document was chunked from
	Title    string
	Content  string
}

// Chunk is one word window of a document body plus its header fields.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Index      int // 1-based sequence number
	Title      string
	Keywords   []string
	Text       string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Classifier picks the specialist label for a question. The label is
// returned as produced; matching against known specialists is the caller's job.
type Classifier interface {
	Classify(ctx context.Context, question string) (string, error)
}

// Generator drafts an answer from retrieved context.
type Generator interface {
	Generate(ctx context.Context, role, context, question string) (string, error)
}
