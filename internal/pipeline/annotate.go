package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"medrag/internal/document"
	"medrag/internal/domain"
)

// checkChunks is how many leading chunks Check inspects per document.
const checkChunks = 10

// AnnotateAll derives keywords and a summary for every processed document
// and rewrites its artifacts.
func (p *Pipeline) AnnotateAll(ctx context.Context) (*domain.AnnotateStats, error) {
	dirs, err := p.DocumentDirs()
	if err != nil {
		return nil, err
	}
	stats := &domain.AnnotateStats{}
	stats.DocsTotal.Store(int64(len(dirs)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, dir := range dirs {
		if stopped(gctx) {
			break
		}
		g.Go(func() error {
			if stopped(gctx) {
				return nil
			}
			var res document.PersistResult
			err := guard(func() error {
				var err error
				res, err = p.AnnotateDocument(dir)
				return err
			})
			stats.ChunksRewritten.Add(int64(res.ChunksRewritten))
			stats.ChunksSkipped.Add(int64(res.ChunksSkipped))
			if res.SummaryWritten {
				stats.SummariesWritten.Add(1)
			}
			switch {
			case errors.Is(err, domain.ErrNoChunks):
				stats.NoChunks.Add(1)
			case err != nil:
				stats.Failed.Add(1)
				p.logger.Error("annotation failed", "doc", dir, "error", err)
			default:
				stats.Processed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats, ctx.Err()
}

// AnnotateDocument runs one load → derive → persist cycle over dir. A
// directory without chunks yields domain.ErrNoChunks and is left alone.
func (p *Pipeline) AnnotateDocument(dir string) (document.PersistResult, error) {
	unlock := p.lock(dir)
	defer unlock()

	agg, err := document.Load(dir)
	if err != nil {
		return document.PersistResult{}, err
	}
	if len(agg.Chunks) == 0 {
		return document.PersistResult{}, domain.ErrNoChunks
	}
	fullText, title, err := agg.Collect(p.cfg.Chunker.Overlap())
	if err != nil {
		return document.PersistResult{}, err
	}
	kws := p.cfg.Keywords.Extract(fullText, p.cfg.Keywords.TopK())
	summary := p.cfg.Summarizer.Summarize(title, fullText)

	res, err := agg.Persist(title, summary, kws)
	if err != nil {
		return res, fmt.Errorf("persist: %w", err)
	}
	p.logger.Debug("document annotated", "doc", dir, "keywords", len(kws), "chunks", res.ChunksRewritten)
	return res, nil
}

// CheckReport lists documents whose annotation is incomplete.
type CheckReport struct {
	Documents       int
	MissingSummary  []string
	MissingKeywords []string
}

// OK reports whether every document is fully annotated.
func (r CheckReport) OK() bool {
	return len(r.MissingSummary) == 0 && len(r.MissingKeywords) == 0
}

// Check reports documents without a summary artifact and documents whose
// first chunks lack the keywords header line.
func (p *Pipeline) Check(ctx context.Context) (CheckReport, error) {
	var rep CheckReport
	dirs, err := p.DocumentDirs()
	if err != nil {
		return rep, err
	}
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		agg, err := document.Load(dir)
		if err != nil {
			return rep, err
		}
		if len(agg.Chunks) == 0 {
			continue
		}
		rep.Documents++
		if _, err := os.Stat(agg.SummaryPath()); err != nil {
			rep.MissingSummary = append(rep.MissingSummary, dir)
		}
		for i, ch := range agg.Chunks {
			if i == checkChunks {
				break
			}
			data, err := os.ReadFile(ch.Path)
			if err != nil {
				return rep, err
			}
			if !document.HasKeywordsHeader(string(data)) {
				rep.MissingKeywords = append(rep.MissingKeywords, dir)
				break
			}
		}
	}
	return rep, nil
}
