package chunker

import (
	"regexp"
	"strings"
)

const maxNameRunes = 120

var (
	forbiddenNameChars = regexp.MustCompile(`[/\\:*?"<>|]`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
	inlineSpaceRun     = regexp.MustCompile(`[ \t]+`)
)

// SanitizeName turns a file stem into a directory-safe document slug.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = forbiddenNameChars.ReplaceAllString(name, "_")
	name = whitespaceRun.ReplaceAllString(name, " ")
	if r := []rune(name); len(r) > maxNameRunes {
		name = string(r[:maxNameRunes])
	}
	return name
}

// Normalize strips the BOM, unifies line endings and collapses runs of
// spaces and tabs on every line. Paragraph breaks are kept.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\ufeff", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(inlineSpaceRun.ReplaceAllString(ln, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SplitTitle separates the first line (title) from the rest (body). A blank
// first line falls back to fallback.
func SplitTitle(text, fallback string) (title, body string) {
	first, rest, _ := strings.Cut(text, "\n")
	title = strings.TrimSpace(first)
	if title == "" {
		title = fallback
	}
	return title, strings.TrimSpace(rest)
}
