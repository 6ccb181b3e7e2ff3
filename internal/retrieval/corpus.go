package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"medrag/internal/document"
	"medrag/internal/domain"
)

// SummarySuffix ends the id of a summary entry: <document id>/summary.
const SummarySuffix = "/summary"

// LoadCorpus walks root and returns one entry per chunk artifact of every
// document directory below it, in path order. With summaries set, each
// document's summary body is appended after its chunks. Empty artifacts are
// skipped.
func LoadCorpus(root string, summaries bool) ([]domain.Chunk, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(dirs)

	var out []domain.Chunk
	for _, dir := range dirs {
		agg, err := document.Load(dir)
		if err != nil {
			return nil, err
		}
		docID := documentID(root, dir)
		for _, cf := range agg.Chunks {
			idx := cf.Index
			if idx == math.MaxInt {
				idx = 0
			}
			ch, ok, err := readEntry(cf.Path, docID, strings.TrimSuffix(cf.Name, filepath.Ext(cf.Name)), idx)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, ch)
			}
		}
		if summaries && len(agg.Chunks) > 0 {
			ch, ok, err := readEntry(agg.SummaryPath(), docID, "summary", 0)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			if ok {
				out = append(out, ch)
			}
		}
	}
	return out, nil
}

func documentID(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(dir)
	}
	return filepath.ToSlash(rel)
}

func readEntry(path, docID, name string, index int) (domain.Chunk, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Chunk{}, false, err
	}
	title, body, err := document.ParseArtifact(string(data))
	if errors.Is(err, domain.ErrEmptyArtifact) {
		return domain.Chunk{}, false, nil
	}
	if err != nil {
		return domain.Chunk{}, false, err
	}
	text := strings.TrimSpace(strings.Join(body, "\n"))
	if text == "" {
		return domain.Chunk{}, false, nil
	}
	lines := document.SplitLines(string(data))
	var kws []string
	if len(lines) > 1 && document.IsKeywordsLine(lines[1]) {
		kws = parseKeywords(lines[1])
	}
	return domain.Chunk{
		DocumentID: docID,
		ChunkID:    docID + "/" + name,
		Index:      index,
		Title:      title,
		Keywords:   kws,
		Text:       text,
	}, true, nil
}

func parseKeywords(line string) []string {
	_, list, _ := strings.Cut(line, ":")
	var out []string
	for _, k := range strings.Split(list, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
