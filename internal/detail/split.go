package detail

import (
	"regexp"
	"strings"
)

var (
	markdownNoisePattern = regexp.MustCompile("[*_`#]+")
	sentenceEndPattern   = regexp.MustCompile(`([.!?])\s+`)
)

// Normalize flattens model output so speech synthesis reads it cleanly:
// newlines become spaces, markdown decoration is stripped, and runs of
// whitespace collapse to single spaces.
func Normalize(text string) string {
	flattened := strings.ReplaceAll(text, "\n", " ")
	flattened = markdownNoisePattern.ReplaceAllString(flattened, " ")
	return strings.Join(strings.Fields(flattened), " ")
}

// Split normalizes text and divides it into sentence-level sections on
// terminal punctuation. Text without sentence boundaries yields a single
// section; empty text yields none.
func Split(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	marked := sentenceEndPattern.ReplaceAllString(normalized, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sections := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			sections = append(sections, part)
		}
	}
	return sections
}

// Summarize returns the first two sections of text as the short narrated
// summary, or the normalized text when no sentence boundaries exist.
func Summarize(text string) string {
	sections := Split(text)
	if len(sections) == 0 {
		return ""
	}
	if len(sections) == 1 {
		return sections[0]
	}
	return sections[0] + " " + sections[1]
}
