// Package pipeline runs the document batches: raw sources are extracted and
// chunked into processed document directories, which are then annotated with
// keywords and summaries and indexed for retrieval. Documents are processed
// concurrently; all work on one document directory is serialized.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"medrag/internal/chunker"
	"medrag/internal/extract"
	"medrag/internal/keywords"
	"medrag/internal/summarizer"
)

// Config wires the pipeline components.
type Config struct {
	RawDir       string
	ProcessedDir string
	// Categories are subdirectories of RawDir and ProcessedDir. Empty means
	// every subdirectory found.
	Categories []string
	// Include holds glob patterns matched against source file names.
	Include    []string
	Workers    int
	Chunker    *chunker.WordChunker
	Keywords   *keywords.Extractor
	Summarizer *summarizer.ExtractiveSummarizer
	Logger     *slog.Logger
}

// Pipeline processes documents in batches.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	locks  sync.Map // document dir -> *sync.Mutex
}

// Source is one raw input file.
type Source struct {
	Category string
	Path     string
}

// Slug returns the document directory name derived from the file stem.
func (s Source) Slug() string {
	base := filepath.Base(s.Path)
	return chunker.SanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// New validates cfg and creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Chunker == nil || cfg.Keywords == nil || cfg.Summarizer == nil {
		return nil, fmt.Errorf("pipeline: chunker, keywords and summarizer are required")
	}
	for _, p := range cfg.Include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("pipeline: invalid include pattern %q", p)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: cfg.Logger}, nil
}

// DocumentDir returns the processed directory of a source.
func (p *Pipeline) DocumentDir(src Source) string {
	return filepath.Join(p.cfg.ProcessedDir, src.Category, src.Slug())
}

func (p *Pipeline) lock(dir string) func() {
	v, _ := p.locks.LoadOrStore(filepath.Clean(dir), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// categories returns the configured categories, or every subdirectory of root.
func (p *Pipeline) categories(root string) ([]string, error) {
	if len(p.cfg.Categories) > 0 {
		return p.cfg.Categories, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Matches reports whether a file name is selected by the include patterns
// and has a reader.
func (p *Pipeline) Matches(name string) bool {
	base := filepath.Base(name)
	if !extract.Supported(base) {
		return false
	}
	if len(p.cfg.Include) == 0 {
		return true
	}
	for _, pat := range p.cfg.Include {
		if ok, _ := doublestar.Match(strings.ToLower(pat), strings.ToLower(base)); ok {
			return true
		}
	}
	return false
}

// Sources lists the top-level files of every raw category directory that
// match the include patterns, in category then name order. Missing category
// directories are skipped.
func (p *Pipeline) Sources() ([]Source, error) {
	cats, err := p.categories(p.cfg.RawDir)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var out []Source
	for _, cat := range cats {
		dir := filepath.Join(p.cfg.RawDir, cat)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			p.logger.Debug("category directory missing", "dir", dir)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !p.Matches(e.Name()) {
				continue
			}
			out = append(out, Source{Category: cat, Path: filepath.Join(dir, e.Name())})
		}
	}
	return out, nil
}

// DocumentDirs lists processed document directories (category/slug) in
// sorted order.
func (p *Pipeline) DocumentDirs() ([]string, error) {
	cats, err := p.categories(p.cfg.ProcessedDir)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var out []string
	for _, cat := range cats {
		dir := filepath.Join(p.cfg.ProcessedDir, cat)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// guard converts a panic in one document's processing into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func stopped(ctx context.Context) bool { return ctx.Err() != nil }
