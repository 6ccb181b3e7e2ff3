package summarizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks a summary cut at the character limit.
const Ellipsis = "…"

// Options bounds the size of a summary.
type Options struct {
	TargetSentences  int
	WordBudget       int
	CharLimit        int
	MinSentenceChars int
}

// ExtractiveSummarizer picks leading sentences of a text until a sentence or
// word budget is reached.
type ExtractiveSummarizer struct {
	target   int
	budget   int
	limit    int
	minChars int
}

// NewExtractiveSummarizer creates a summarizer. Zero options take the usual
// values: 6 sentences, 180 words, 1200 characters, 20-character sentences.
func NewExtractiveSummarizer(opts Options) *ExtractiveSummarizer {
	s := &ExtractiveSummarizer{
		target:   opts.TargetSentences,
		budget:   opts.WordBudget,
		limit:    opts.CharLimit,
		minChars: opts.MinSentenceChars,
	}
	if s.target <= 0 {
		s.target = 6
	}
	if s.budget <= 0 {
		s.budget = 180
	}
	if s.limit < 2 {
		s.limit = 1200
	}
	if s.minChars <= 0 {
		s.minChars = 20
	}
	return s
}

// Summarize returns a non-empty summary of text of at most CharLimit runes.
func (s *ExtractiveSummarizer) Summarize(title, text string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return title + ". Brief note: source text is empty."
	}
	collapsed := strings.Join(words, " ")

	var chosen []string
	total := 0
	for _, sent := range SplitSentences(collapsed) {
		if utf8.RuneCountInString(sent) < s.minChars {
			continue
		}
		n := len(strings.Fields(sent))
		if total+n > s.budget && len(chosen) > 0 {
			break
		}
		chosen = append(chosen, sent)
		total += n
		if len(chosen) >= s.target {
			break
		}
	}

	var summary string
	if len(chosen) == 0 {
		if len(words) > s.budget {
			words = words[:s.budget]
		}
		summary = strings.Join(words, " ")
	} else {
		summary = strings.Join(chosen, " ")
	}
	return truncate(summary, s.limit)
}

// SplitSentences splits whitespace-collapsed text after '.', '!' or '?'
// followed by whitespace. Pieces are trimmed; empty pieces are dropped.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				if piece := strings.TrimSpace(string(runes[start : i+1])); piece != "" {
					out = append(out, piece)
				}
				start = i + 1
			}
		}
	}
	if piece := strings.TrimSpace(string(runes[start:])); piece != "" {
		out = append(out, piece)
	}
	return out
}

func truncate(summary string, limit int) string {
	if utf8.RuneCountInString(summary) <= limit {
		return summary
	}
	runes := []rune(summary)
	return strings.TrimRightFunc(string(runes[:limit-1]), unicode.IsSpace) + Ellipsis
}
