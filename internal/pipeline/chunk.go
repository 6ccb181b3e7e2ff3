package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"medrag/internal/chunker"
	"medrag/internal/document"
	"medrag/internal/domain"
	"medrag/internal/extract"
)

// ChunkOutcome classifies one chunked source.
type ChunkOutcome int

const (
	Chunked ChunkOutcome = iota
	// Skipped sources normalized to empty text; no directory is written.
	Skipped
	// Placeholder sources failed extraction and were stored with the error marker.
	Placeholder
)

// ChunkAll extracts and chunks every source. Individual failures are counted;
// only cancellation stops the batch early.
func (p *Pipeline) ChunkAll(ctx context.Context) (*domain.ChunkStats, error) {
	sources, err := p.Sources()
	if err != nil {
		return nil, err
	}
	stats := &domain.ChunkStats{}
	stats.Files.Store(int64(len(sources)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, src := range sources {
		if stopped(gctx) {
			break
		}
		g.Go(func() error {
			if stopped(gctx) {
				return nil
			}
			var (
				n       int
				outcome ChunkOutcome
			)
			err := guard(func() error {
				var err error
				n, outcome, err = p.ChunkSource(src)
				return err
			})
			switch {
			case err != nil:
				stats.Failed.Add(1)
				p.logger.Error("chunking failed", "doc", src.Path, "error", err)
			case outcome == Skipped:
				stats.Skipped.Add(1)
			case outcome == Placeholder:
				stats.Failed.Add(1)
				stats.ChunksWritten.Add(int64(n))
			default:
				stats.Processed.Add(1)
				stats.ChunksWritten.Add(int64(n))
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats, ctx.Err()
}

// ChunkSource extracts one source, normalizes its text and writes the chunk
// artifacts of its document directory. It returns the number of chunks.
func (p *Pipeline) ChunkSource(src Source) (int, ChunkOutcome, error) {
	base := filepath.Base(src.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	text, ok := extract.Text(src.Path)
	outcome := Chunked
	if !ok {
		p.logger.Warn("extraction failed", "doc", src.Path, "error", text)
		text = stem + "\n" + text
		outcome = Placeholder
	}
	text = chunker.Normalize(text)
	if text == "" {
		p.logger.Debug("empty document skipped", "doc", src.Path)
		return 0, Skipped, nil
	}

	doc := domain.Document{
		ID:       src.Category + "/" + src.Slug(),
		Category: src.Category,
		Slug:     src.Slug(),
		Path:     src.Path,
		Title:    stem,
		Content:  text,
	}
	title, chunks := p.cfg.Chunker.Chunk(doc)

	dir := p.DocumentDir(src)
	unlock := p.lock(dir)
	defer unlock()
	n, err := document.WriteChunks(dir, title, chunks)
	if err != nil {
		return n, outcome, fmt.Errorf("write chunks: %w", err)
	}
	p.logger.Debug("document chunked", "doc", doc.ID, "chunks", n)
	return n, outcome, nil
}
