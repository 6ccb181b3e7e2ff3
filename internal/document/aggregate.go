package document

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"medrag/internal/domain"
)

var chunkNamePattern = regexp.MustCompile(`^(\d+)\.txt$`)

// ChunkFile is one chunk artifact of a document directory.
type ChunkFile struct {
	Name  string
	Path  string
	Index int // math.MaxInt for names that are not NNNN.txt
}

// Aggregate is a document directory: its chunk artifacts in sequence order
// plus the reserved summary artifact.
type Aggregate struct {
	Dir    string
	Chunks []ChunkFile
}

// PersistResult reports what a Persist call wrote.
type PersistResult struct {
	SummaryWritten  bool
	ChunksRewritten int
	ChunksSkipped   int
}

// Load lists the chunk artifacts of dir. A directory without chunks is not
// an error; the aggregate simply has no chunks.
func Load(dir string) (*Aggregate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document dir %s: %w", dir, err)
	}
	var chunks []ChunkFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ChunkExt) || strings.EqualFold(name, SummaryName) {
			continue
		}
		idx := math.MaxInt
		if m := chunkNamePattern.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				idx = n
			}
		}
		chunks = append(chunks, ChunkFile{Name: name, Path: filepath.Join(dir, name), Index: idx})
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return &Aggregate{Dir: dir, Chunks: chunks}, nil
}

// SummaryPath returns the path of the summary artifact.
func (a *Aggregate) SummaryPath() string { return filepath.Join(a.Dir, SummaryName) }

// Collect rebuilds the document's full text and title from its chunks. Chunk
// bodies are joined with a blank line. When overlap > 0 and the leading
// overlap words of a chunk repeat the trailing words of its predecessor, the
// repeated words are dropped; bodies that do not line up are kept verbatim.
func (a *Aggregate) Collect(overlap int) (fullText, title string, err error) {
	if len(a.Chunks) == 0 {
		return "", Untitled, nil
	}
	title = Untitled
	var texts []string
	var prevWords []string
	for i, ch := range a.Chunks {
		data, err := os.ReadFile(ch.Path)
		if err != nil {
			return "", "", fmt.Errorf("read chunk %s: %w", ch.Path, err)
		}
		lines := SplitLines(string(data))
		if i == 0 && len(lines) > 0 {
			if t := strings.TrimSpace(lines[0]); t != "" {
				title = t
			}
		}
		if len(lines) == 0 {
			continue
		}
		body := strings.TrimSpace(strings.Join(StripKeywordLines(lines[1:]), "\n"))
		words := strings.Fields(body)
		if i > 0 && sharesOverlap(prevWords, words, overlap) {
			body = strings.Join(words[overlap:], " ")
		}
		prevWords = words
		if body != "" {
			texts = append(texts, body)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n\n")), title, nil
}

func sharesOverlap(prev, cur []string, overlap int) bool {
	if overlap <= 0 || len(prev) < overlap || len(cur) < overlap {
		return false
	}
	tail := prev[len(prev)-overlap:]
	for i := 0; i < overlap; i++ {
		if tail[i] != cur[i] {
			return false
		}
	}
	return true
}

// RewriteChunk replaces the header of one chunk artifact with title-from-file
// plus a single keywords line. The result depends only on the existing
// content and kws. Unchanged content is not rewritten.
func RewriteChunk(path string, kws []string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	title, body, err := ParseArtifact(string(data))
	if err != nil {
		return false, err
	}
	out := FormatArtifact(title, kws, body)
	if out == string(data) {
		return false, nil
	}
	if err := writeFileAtomic(path, []byte(out), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// WriteSummary overwrites the summary artifact.
func (a *Aggregate) WriteSummary(title, summary string, kws []string) error {
	content := FormatArtifact(title, kws, []string{summary})
	return writeFileAtomic(a.SummaryPath(), []byte(content), 0o644)
}

// Persist writes the summary artifact and then rewrites every chunk header.
// A chunk that cannot be rewritten is left untouched and counted as skipped;
// the error is returned joined with the others after all chunks were tried.
func (a *Aggregate) Persist(title, summary string, kws []string) (PersistResult, error) {
	var res PersistResult
	if err := a.WriteSummary(title, summary, kws); err != nil {
		return res, fmt.Errorf("write summary: %w", err)
	}
	res.SummaryWritten = true
	var errs []error
	for _, ch := range a.Chunks {
		if _, err := RewriteChunk(ch.Path, kws); err != nil {
			res.ChunksSkipped++
			if !errors.Is(err, domain.ErrEmptyArtifact) {
				errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
			}
			continue
		}
		res.ChunksRewritten++
	}
	return res, errors.Join(errs...)
}

// WriteChunks stores freshly chunked text as NNNN.txt artifacts
// (title, blank line, body). Higher-numbered artifacts left over from an
// earlier, longer chunking are removed so the sequence has no stale tail.
func WriteChunks(dir, title string, chunks []domain.Chunk) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create document dir: %w", err)
	}
	for i, ch := range chunks {
		content := title + "\n\n" + strings.TrimSpace(ch.Text) + "\n"
		if err := writeFileAtomic(filepath.Join(dir, ChunkName(i+1)), []byte(content), 0o644); err != nil {
			return i, err
		}
	}
	agg, err := Load(dir)
	if err != nil {
		return len(chunks), err
	}
	for _, ch := range agg.Chunks {
		if ch.Index != math.MaxInt && ch.Index > len(chunks) {
			if err := os.Remove(ch.Path); err != nil {
				return len(chunks), fmt.Errorf("remove stale chunk: %w", err)
			}
		}
	}
	return len(chunks), nil
}
