package keywords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = []string{"cardiology", "heart", "ecg", "arrhythmia"}

func newTestExtractor() *Extractor {
	return NewExtractor(Options{TopK: 15, Defaults: testDefaults})
}

func TestExtractEmptyTextReturnsDefaults(t *testing.T) {
	e := newTestExtractor()
	assert.Equal(t, testDefaults, e.Extract("", 15))
	assert.Equal(t, testDefaults[:2], e.Extract("  \n\t ", 2))
}

func TestExtractShortTextUsesFrequencyFallback(t *testing.T) {
	e := newTestExtractor()
	text := "Atrial fibrillation with stroke risk. Atrial fibrillation increases stroke. " +
		"Patients study anticoagulation; anticoagulation reduces stroke."
	got := e.Extract(text, 4)
	assert.Equal(t, []string{"stroke", "atrial", "fibrillation", "anticoagulation"}, got)
}

func TestExtractorWithoutDefaultsUsesPackageList(t *testing.T) {
	for _, defaults := range [][]string{nil, {"", "  ", "Keywords: x"}} {
		e := NewExtractor(Options{Defaults: defaults})
		for k := 1; k <= 20; k++ {
			got := e.Extract("", k)
			assert.NotEmpty(t, got)
			assert.LessOrEqual(t, len(got), k)
			assert.Equal(t, DefaultKeywords[:min(k, len(DefaultKeywords))], got)
		}
	}
}

func TestExtractShortTextOnlyStopwordsFallsBackToDefaults(t *testing.T) {
	e := newTestExtractor()
	assert.Equal(t, testDefaults[:3], e.Extract("with from that this patients", 3))
}

func TestExtractLongTextRanksUnigramsAndBigrams(t *testing.T) {
	e := newTestExtractor()
	text := strings.Repeat("heart failure therapy improves outcomes. ", 20) +
		strings.Repeat("beta blockers help. ", 5)

	got := e.Extract(text, 5)
	require.Len(t, got, 5)
	// Every term below appears 20 times; equal weights keep feature order.
	assert.Equal(t, []string{"failure", "failure therapy", "heart", "heart failure", "improves"}, got)
}

func TestExtractLongTextStopwordsOnlyFallsBack(t *testing.T) {
	e := NewExtractor(Options{TopK: 3, MinWordsForTFIDF: 5, Defaults: testDefaults})
	text := strings.Repeat("the and of to in ", 4)
	assert.Equal(t, testDefaults[:3], e.Extract(text, 3))

	text += "tachycardia tachycardia"
	assert.Equal(t, []string{"tachycardia", "tachycardia tachycardia"}, e.Extract(text, 3))
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor()
	text := strings.Repeat("myocardial infarction troponin elevation ecg changes chest pain ", 15)
	first := e.Extract(text, 15)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Extract(text, 15))
	}
}

func TestExtractNeverReturnsKeywordsHeader(t *testing.T) {
	e := newTestExtractor()
	text := strings.Repeat("keywords summary keywords: ", 50)
	got := e.Extract(text, 15)
	assert.NotEmpty(t, got)
	for _, k := range got {
		assert.NotEqual(t, "keywords", strings.ToLower(k))
	}
}

func TestExtractTruncatesInput(t *testing.T) {
	e := NewExtractor(Options{TopK: 5, MaxTextChars: 20, Defaults: testDefaults})
	text := "valvular stenosis aaaa " + strings.Repeat("ignored ", 500)
	assert.Equal(t, []string{"valvular", "stenosis"}, e.Extract(text, 5))
}

func TestNewExtractorDefaults(t *testing.T) {
	e := NewExtractor(Options{})
	assert.Equal(t, 15, e.TopK())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "сер", truncateRunes("сердце", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
