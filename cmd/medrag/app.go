package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"medrag/internal/agents"
	"medrag/internal/chunker"
	"medrag/internal/config"
	"medrag/internal/domain"
	"medrag/internal/embedding"
	embgemini "medrag/internal/embedding/gemini"
	embopenai "medrag/internal/embedding/openai"
	"medrag/internal/embedding/tfidf"
	"medrag/internal/keywords"
	"medrag/internal/llm"
	llmgemini "medrag/internal/llm/gemini"
	llmopenai "medrag/internal/llm/openai"
	"medrag/internal/pipeline"
	"medrag/internal/retrieval"
	"medrag/internal/summarizer"
	"medrag/internal/vectorstore"
	"medrag/internal/vectorstore/memory"
	"medrag/internal/vectorstore/qdrant"
	"medrag/internal/vectorstore/sqlite"
)

// app holds the components assembled from the config and the resources to
// release on exit.
type app struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	db      *sqlite.DB
	closers []io.Closer
}

func newApp(cfg *config.AppConfig) *app {
	return &app{cfg: cfg, logger: slog.Default()}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	ch, err := chunker.New(a.cfg.Chunker.ChunkWords, a.cfg.Chunker.OverlapWords)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Config{
		RawDir:       a.cfg.Paths.RawDir,
		ProcessedDir: a.cfg.Paths.ProcessedDir,
		Categories:   a.cfg.Paths.Categories,
		Include:      a.cfg.Paths.Include,
		Workers:      a.cfg.Workers,
		Chunker:      ch,
		Keywords: keywords.NewExtractor(keywords.Options{
			TopK:             a.cfg.Keywords.TopK,
			MaxTextChars:     a.cfg.Keywords.MaxTextChars,
			MinWordsForTFIDF: a.cfg.Keywords.MinWordsForTFIDF,
			Defaults:         a.cfg.Keywords.Defaults,
		}),
		Summarizer: summarizer.NewExtractiveSummarizer(summarizer.Options{
			TargetSentences:  a.cfg.Summary.TargetSentences,
			WordBudget:       a.cfg.Summary.WordBudget,
			CharLimit:        a.cfg.Summary.CharLimit,
			MinSentenceChars: a.cfg.Summary.MinSentenceChars,
		}),
		Logger: a.logger,
	})
}

// embedder returns a fresh embedder; every collection needs its own because
// the TF-IDF embedder is calibrated on one corpus.
func (a *app) embedder(ctx context.Context) (domain.Embedder, error) {
	var emb domain.Embedder
	switch a.cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		oc := a.cfg.Embedder.OpenAI
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:        oc.BaseURL,
			APIKeyEnv:      oc.APIKeyEnv,
			Model:          oc.Model,
			Timeout:        time.Duration(oc.TimeoutSecs) * time.Second,
			RequestsPerMin: a.cfg.Embedder.RequestsPerMin,
			Logger:         a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		emb = client
	case "gemini":
		gc := a.cfg.Embedder.Gemini
		client, err := embgemini.NewClient(ctx, embgemini.Config{
			APIKeyEnv:      gc.APIKeyEnv,
			Model:          gc.Model,
			Timeout:        a.cfg.Timeout(),
			RequestsPerMin: a.cfg.Embedder.RequestsPerMin,
			Logger:         a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		a.closers = append(a.closers, client)
		emb = client
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrConfig, a.cfg.Embedder.Type)
	}
	return embedding.NewBatched(emb, a.cfg.Embedder.BatchSize), nil
}

func (a *app) store(name string) (vectorstore.Storage, error) {
	switch a.cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "sqlite":
		if a.db == nil {
			db, err := sqlite.Open(a.cfg.VectorStore.SQLite.Path)
			if err != nil {
				return nil, err
			}
			a.db = db
		}
		return a.db.Collection(name), nil
	case "qdrant":
		qc := a.cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.CollectionPrefix + name,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrConfig, a.cfg.VectorStore.Type)
	}
}

func (a *app) completer(ctx context.Context) (llm.Completer, error) {
	switch a.cfg.LLM.Type {
	case "openai", "":
		oc := a.cfg.LLM.OpenAI
		if oc == nil {
			oc = &config.OpenAIConfig{}
		}
		return llmopenai.NewClient(llmopenai.Config{
			BaseURL:        oc.BaseURL,
			APIKeyEnv:      oc.APIKeyEnv,
			Model:          oc.Model,
			Timeout:        time.Duration(oc.TimeoutSecs) * time.Second,
			RequestsPerMin: a.cfg.LLM.RequestsPerMin,
			Logger:         a.logger,
		})
	case "gemini":
		gc := a.cfg.LLM.Gemini
		client, err := llmgemini.NewClient(ctx, llmgemini.Config{
			APIKeyEnv:      gc.APIKeyEnv,
			Model:          gc.Model,
			Timeout:        a.cfg.Timeout(),
			RequestsPerMin: a.cfg.LLM.RequestsPerMin,
			Logger:         a.logger,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm %q", domain.ErrConfig, a.cfg.LLM.Type)
	}
}

// targets creates one empty collection per configured specialist.
func (a *app) targets(ctx context.Context) ([]pipeline.IndexTarget, error) {
	out := make([]pipeline.IndexTarget, 0, len(a.cfg.Specialists))
	for _, sp := range a.cfg.Specialists {
		emb, err := a.embedder(ctx)
		if err != nil {
			return nil, err
		}
		st, err := a.store(sp.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, pipeline.IndexTarget{
			Collection: retrieval.NewCollection(sp.Name, emb, st, a.logger),
			DataDir:    sp.DataDir,
		})
	}
	return out, nil
}

func (a *app) index(ctx context.Context, targets []pipeline.IndexTarget, rebuild bool) (*domain.IndexStats, error) {
	return pipeline.Index(ctx, targets, pipeline.IndexOptions{
		Rebuild:   rebuild,
		Summaries: a.cfg.Retrieval.IndexSummaries,
		Workers:   a.cfg.Workers,
		Logger:    a.logger,
	})
}

// orchestrator indexes every specialist corpus and wires the router. A
// specialist whose corpus failed to index is left out and logged.
func (a *app) orchestrator(ctx context.Context, rebuild bool) (*agents.Orchestrator, error) {
	targets, err := a.targets(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := retry(ctx, func() (*domain.IndexStats, error) {
		return a.index(ctx, targets, rebuild)
	}); err != nil {
		a.logger.Warn("some specialists are unavailable", "error", err)
	}
	model, err := a.completer(ctx)
	if err != nil {
		return nil, err
	}
	answerer := llm.NewAnswerer(model)

	roles := make(map[string]string, len(a.cfg.Specialists))
	names := make([]string, 0, len(a.cfg.Specialists))
	for _, sp := range a.cfg.Specialists {
		roles[sp.Name] = sp.Role
		names = append(names, sp.Name)
	}
	var specialists []agents.Specialist
	for _, t := range targets {
		if t.Collection.Size() == 0 {
			continue
		}
		name := t.Collection.Name()
		specialists = append(specialists, agents.NewRAGSpecialist(name, roles[name], t.Collection, answerer, a.cfg.Retrieval.TopK))
	}
	if len(specialists) == 0 {
		return nil, fmt.Errorf("no specialist corpus could be indexed: %w", domain.ErrNoChunks)
	}
	return agents.NewOrchestrator(llm.NewRouter(model, names), specialists, a.cfg.Timeout(), a.logger), nil
}

// retry repeats op with exponential backoff while it fails transiently.
func retry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !domain.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(4),
		backoff.WithMaxElapsedTime(2*time.Minute),
		backoff.WithNotify(func(err error, d time.Duration) {
			slog.Warn("transient failure, retrying", "error", err, "in", d)
		}),
	)
}

func isUndetermined(err error) bool { return errors.Is(err, domain.ErrSpecialistUndetermined) }
