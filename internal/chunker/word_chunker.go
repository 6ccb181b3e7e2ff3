package chunker

import (
	"fmt"
	"strings"

	"medrag/internal/domain"
)

// WordChunker splits document bodies into fixed-size word windows with overlap.
type WordChunker struct {
	chunkWords   int
	overlapWords int
}

// New validates the window parameters. The step between windows is
// chunkWords-overlapWords and must be positive.
func New(chunkWords, overlapWords int) (*WordChunker, error) {
	if chunkWords <= 0 {
		return nil, fmt.Errorf("%w: chunk words must be > 0, got %d", domain.ErrConfig, chunkWords)
	}
	if overlapWords < 0 {
		return nil, fmt.Errorf("%w: overlap words must be >= 0, got %d", domain.ErrConfig, overlapWords)
	}
	if overlapWords >= chunkWords {
		return nil, fmt.Errorf("%w: overlap words (%d) must be < chunk words (%d)", domain.ErrConfig, overlapWords, chunkWords)
	}
	return &WordChunker{chunkWords: chunkWords, overlapWords: overlapWords}, nil
}

// Overlap returns the number of words shared by consecutive windows.
func (c *WordChunker) Overlap() int { return c.overlapWords }

// Windows returns the ordered word windows covering words. A sequence no
// longer than one window yields exactly one window, even when empty.
func (c *WordChunker) Windows(words []string) [][]string {
	if len(words) <= c.chunkWords {
		return [][]string{words}
	}
	step := c.chunkWords - c.overlapWords
	var out [][]string
	for start := 0; start < len(words); start += step {
		end := start + c.chunkWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, words[start:end])
		if end == len(words) {
			break
		}
	}
	return out
}

// Chunk splits a normalized document. The first line of Content is the title
// candidate; document.Title is used when it is blank.
func (c *WordChunker) Chunk(document domain.Document) (string, []domain.Chunk) {
	title, body := SplitTitle(document.Content, document.Title)
	windows := c.Windows(strings.Fields(body))
	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		idx := i + 1
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + "/" + fmt.Sprintf("%04d", idx),
			Index:      idx,
			Title:      title,
			Text:       strings.Join(w, " "),
		})
	}
	return title, chunks
}
