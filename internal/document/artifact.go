// Package document models one processed document directory as an aggregate:
// its numbered chunk artifacts and its summary artifact. Every artifact shares
// the same header shape:
//
//	<title>
//	KEYWORDS: k1, k2, ...
//	<blank>
//	<body>
//
// Loading strips any previously written keywords lines so that repeated
// load → derive → persist cycles produce byte-identical files.
package document

import (
	"fmt"
	"strings"
	"unicode"

	"medrag/internal/domain"
)

const (
	// ChunkExt is the extension shared by chunk and summary artifacts.
	ChunkExt = ".txt"
	// SummaryName is the reserved summary artifact name.
	SummaryName = "summary.txt"
	// KeywordsPrefix starts the single keywords header line.
	KeywordsPrefix = "KEYWORDS: "
	// Untitled is used when an artifact has no usable title line.
	Untitled = "Untitled"
)

// ChunkName returns the artifact name for a 1-based chunk index.
func ChunkName(index int) string {
	return fmt.Sprintf("%04d%s", index, ChunkExt)
}

// KeywordsLine renders the header line for kws.
func KeywordsLine(kws []string) string {
	line := KeywordsPrefix + strings.Join(kws, ", ")
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(line)
}

// IsKeywordsLine reports whether line is a keywords header, case-insensitively.
func IsKeywordsLine(line string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "keywords:")
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

// SplitLines splits artifact text into lines. Empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// StripKeywordLines removes a leading run of blank lines followed by one or
// more keywords lines, each with the blank lines that follow it. When no
// keywords line is found the input is returned unchanged.
func StripKeywordLines(lines []string) []string {
	i := 0
	for i < len(lines) && isBlank(lines[i]) {
		i++
	}
	removed := false
	for i < len(lines) && IsKeywordsLine(lines[i]) {
		removed = true
		i++
		for i < len(lines) && isBlank(lines[i]) {
			i++
		}
	}
	if removed {
		return lines[i:]
	}
	return lines
}

// ParseArtifact splits artifact text into its title and its body lines with
// any leading keywords header removed.
func ParseArtifact(text string) (title string, body []string, err error) {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return "", nil, domain.ErrEmptyArtifact
	}
	title = strings.TrimSpace(lines[0])
	if title == "" {
		title = Untitled
	}
	return title, StripKeywordLines(lines[1:]), nil
}

// FormatArtifact renders the canonical artifact: title, one keywords line, a
// blank line, then body without leading blank lines. Trailing whitespace is
// trimmed and a single newline appended.
func FormatArtifact(title string, kws []string, body []string) string {
	start := 0
	for start < len(body) && isBlank(body[start]) {
		start++
	}
	lines := make([]string, 0, len(body)-start+3)
	lines = append(lines, title, KeywordsLine(kws), "")
	lines = append(lines, body[start:]...)
	return strings.TrimRightFunc(strings.Join(lines, "\n"), unicode.IsSpace) + "\n"
}

// HasKeywordsHeader reports whether line 2 of text is a keywords line.
func HasKeywordsHeader(text string) bool {
	lines := SplitLines(text)
	return len(lines) >= 2 && IsKeywordsLine(lines[1])
}
