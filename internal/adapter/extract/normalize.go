// Package extract turns binary documents (PDF, EPUB, Office) into plain text.
package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultTextLimit caps the characters kept per extracted document.
const DefaultTextLimit = 20000

var (
	horizontalSpace = regexp.MustCompile(`[\t\f\v]+`)
	blankRuns       = regexp.MustCompile(`\n{3,}`)
)

// Normalize unifies line endings, turns tabs and form feeds into spaces,
// drops NULs, trims every line and collapses runs of blank lines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Truncate keeps the first limit characters and appends a note saying so.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return fmt.Sprintf("%s\n\n[Note: only the first %d characters are shown]", string(runes[:limit]), limit)
}

// Finalize applies the common post-processing to an extractor's raw output.
// Empty output becomes a diagnostic line so the file is still findable by
// name; placeholder reports whether that happened.
func Finalize(text, fileName string, limit int) (out string, placeholder bool) {
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("No usable text could be extracted from %s. The file may contain only images or be encrypted.", fileName)
		placeholder = true
	}
	return Truncate(Normalize(text), limit), placeholder
}

// FailurePlaceholder is the text indexed in place of a document whose extraction failed.
func FailurePlaceholder(fileName string, err error) string {
	return fmt.Sprintf("[Document: %s] Text extraction failed: %v", fileName, err)
}

func extension(fileName string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}
