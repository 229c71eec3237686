package utils

import (
	"strings"
	"unicode/utf8"
)

// CountWords counts whitespace-separated words in content. Counts are
// always computed server-side from the submitted text; client-supplied
// counts are never trusted.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// CountCharacters counts runes in content after trimming surrounding
// whitespace, so padding cannot inflate or dodge a character limit.
func CountCharacters(content string) int {
	return utf8.RuneCountInString(strings.TrimSpace(content))
}
