// Package preprocess turns raw extracted article text into the bounded,
// reference-free form sent to the annotator.
package preprocess

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// UntitledArticle is the title used when nothing better is available.
const UntitledArticle = "Untitled Article"

// maxFallbackTitleRunes caps titles taken from the first line of text.
const maxFallbackTitleRunes = 120

// referencesHeading matches a standalone "References" heading line.
var referencesHeading = regexp.MustCompile(`(?i)^\s*references?\s*:?\s*$`)

// TruncateAtReferences drops the first standalone "References" heading
// line and everything after it. Mentions inside a sentence, such as
// "reference genome", are left alone.
func TruncateAtReferences(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if referencesHeading.MatchString(strings.TrimSuffix(line, "\r")) {
			return strings.TrimRight(strings.Join(lines[:i], "\n"), " \t\r\n")
		}
	}
	return text
}

// WordCount counts maximal runs of non-whitespace characters.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CapWords keeps the first cap words. Text within the cap is returned
// unchanged; longer text is rejoined with single spaces.
func CapWords(text string, cap int) string {
	words := strings.Fields(text)
	if len(words) <= cap {
		return text
	}
	if cap < 0 {
		cap = 0
	}
	return strings.Join(words[:cap], " ")
}

// Prepared is the result of running the preprocessing steps on one document.
type Prepared struct {
	Trimmed        string // text with the references section removed
	Capped         string // Trimmed limited to the word cap
	TrimmedWords   int
	ProcessedWords int
}

// Prepare truncates references and applies the word cap.
func Prepare(text string, cap int) Prepared {
	trimmed := TruncateAtReferences(text)
	capped := CapWords(trimmed, cap)
	return Prepared{
		Trimmed:        trimmed,
		Capped:         capped,
		TrimmedWords:   WordCount(trimmed),
		ProcessedWords: WordCount(capped),
	}
}

// ResolveTitle picks a display title: embedded metadata, then the file
// name without extension, then the first non-empty line of fallbackText,
// then UntitledArticle. The result is never empty.
func ResolveTitle(metadataTitle, fileName, fallbackText string) string {
	if t := strings.TrimSpace(metadataTitle); t != "" {
		return t
	}

	base := filepath.Base(fileName)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); strings.TrimSpace(stem) != "" {
		return stem
	}

	for _, line := range strings.Split(fallbackText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxFallbackTitleRunes {
			line = string([]rune(line)[:maxFallbackTitleRunes])
		}
		return line
	}
	return UntitledArticle
}
