package memory

import (
	"context"
	"errors"
	"sync"

	"medrag/internal/domain"
	"medrag/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
	position  map[string]int
	fp        string
}

func NewStorage() *Storage { return &Storage{position: make(map[string]int)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.fp = ""
	s.vectors = nil
	s.chunks = nil
	s.position = make(map[string]int)
	return nil
}

// Upsert appends new chunks and replaces known ones in place, so insertion
// order is the order in which a chunk id was first seen.
func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return vectorstore.ErrLength
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return vectorstore.ErrDimension
		}
	}
	for i, ch := range chunks {
		if pos, ok := s.position[ch.ChunkID]; ok {
			s.chunks[pos] = ch
			s.vectors[pos] = vectors[i]
			continue
		}
		s.position[ch.ChunkID] = len(s.chunks)
		s.chunks = append(s.chunks, ch)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 3
	}
	if len(vector) != s.dimension {
		return nil, vectorstore.ErrDimension
	}
	return vectorstore.Rank(vector, s.chunks, s.vectors, topK), nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	s.position = make(map[string]int)
	s.fp = ""
	return nil
}

func (s *Storage) Fingerprint(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fp, nil
}

func (s *Storage) SetFingerprint(_ context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fp = fp
	return nil
}
