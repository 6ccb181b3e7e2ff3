package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"medrag/internal/domain"
	"medrag/internal/retrieval"
)

// IndexTarget pairs a specialist collection with its processed corpus root.
type IndexTarget struct {
	Collection *retrieval.Collection
	DataDir    string
}

// IndexOptions controls an index batch.
type IndexOptions struct {
	Rebuild   bool
	Summaries bool
	Workers   int
	Logger    *slog.Logger
}

// Index loads and embeds the corpus of every target. A failing collection is
// counted and reported in the joined error; the others are still built.
func Index(ctx context.Context, targets []IndexTarget, opts IndexOptions) (*domain.IndexStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	stats := &domain.IndexStats{}
	errs := make([]error, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			n, err := IndexCollection(gctx, t, opts)
			if err != nil {
				stats.Failed.Add(1)
				errs[i] = fmt.Errorf("%s: %w", t.Collection.Name(), err)
				logger.Error("index failed", "collection", t.Collection.Name(), "error", err)
				return nil
			}
			stats.Collections.Add(1)
			stats.Entries.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()
	return stats, errors.Join(errs...)
}

// IndexCollection builds one collection from its corpus and returns the
// number of entries embedded.
func IndexCollection(ctx context.Context, t IndexTarget, opts IndexOptions) (int, error) {
	chunks, err := retrieval.LoadCorpus(t.DataDir, opts.Summaries)
	if err != nil {
		return 0, err
	}
	return t.Collection.Build(ctx, chunks, opts.Rebuild)
}
