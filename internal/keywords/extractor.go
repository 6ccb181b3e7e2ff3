// Package keywords derives a document's keyword set from its full text.
//
// Long texts are weighted over unigrams and bigrams; for a single document
// the inverse document frequency is constant, so terms are effectively ranked
// by in-document frequency. Short texts use a plain frequency count with a
// wider stop list. Every result goes through Sanitize.
package keywords

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

var (
	termPattern     = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z\-]{2,}\b`)
	fallbackPattern = regexp.MustCompile(`[A-Za-z][A-Za-z\-]{3,}`)

	errEmptyVocabulary = errors.New("empty vocabulary; text contains only stop words")
)

// Options tunes an Extractor.
type Options struct {
	TopK             int
	MaxTextChars     int
	MinWordsForTFIDF int
	Defaults         []string
}

// Extractor selects keywords from document text.
type Extractor struct {
	maxTextChars int
	minWords     int
	topK         int
	defaults     []string
}

// NewExtractor creates an Extractor. Zero options take the usual values
// (top 15 terms, 200000 characters, 80 words, DefaultKeywords). Defaults that
// sanitize to nothing are replaced by DefaultKeywords too.
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		maxTextChars: opts.MaxTextChars,
		minWords:     opts.MinWordsForTFIDF,
		topK:         opts.TopK,
		defaults:     clean(opts.Defaults, len(opts.Defaults)),
	}
	if len(e.defaults) == 0 {
		e.defaults = append([]string(nil), DefaultKeywords...)
	}
	if e.maxTextChars <= 0 {
		e.maxTextChars = 200_000
	}
	if e.minWords <= 0 {
		e.minWords = 80
	}
	if e.topK <= 0 {
		e.topK = 15
	}
	return e
}

// TopK returns the configured keyword count.
func (e *Extractor) TopK() int { return e.topK }

// Extract returns at most topK unique keywords for text. A non-positive topK
// uses the configured count. The result is deterministic for equal input.
func (e *Extractor) Extract(text string, topK int) []string {
	if topK <= 0 {
		topK = e.topK
	}
	if strings.TrimSpace(text) == "" {
		return Sanitize(nil, topK, e.defaults)
	}
	text = truncateRunes(text, e.maxTextChars)

	var terms []string
	if len(strings.Fields(text)) < e.minWords {
		terms = frequencyTerms(text, topK)
	} else {
		var err error
		terms, err = weightedTerms(text, topK)
		if err != nil {
			terms = frequencyTerms(text, topK)
		}
	}
	return Sanitize(terms, topK, e.defaults)
}

// weightedTerms ranks unigrams and bigrams by weight, highest first. Equal
// weights keep the sorted feature order.
func weightedTerms(text string, topK int) ([]string, error) {
	var tokens []string
	for _, tok := range termPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := englishStopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return nil, errEmptyVocabulary
	}

	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}

	features := make([]string, 0, len(counts))
	for f := range counts {
		features = append(features, f)
	}
	sort.Strings(features)
	sort.SliceStable(features, func(i, j int) bool {
		return counts[features[i]] > counts[features[j]]
	})

	out := make([]string, 0, topK)
	for _, f := range features {
		if len(out) == topK {
			break
		}
		if counts[f] <= 0 {
			break
		}
		out = append(out, f)
	}
	return out, nil
}

// frequencyTerms counts long alphabetic tokens outside the fallback stop list.
// Ties keep first-occurrence order.
func frequencyTerms(text string, topK int) []string {
	counts := make(map[string]int)
	var order []string
	for _, tok := range fallbackPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := fallbackStopwords[tok]; stop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topK {
		order = order[:topK]
	}
	return order
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
