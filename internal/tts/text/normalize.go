// Package text prepares script text for speech synthesis: normalization,
// affirmation extraction, chunking under the API input limit, and script
// statistics.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
	nbsp         = " "
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	quoteReplacer     = strings.NewReplacer(
		emDash, "-",
		enDash, "-",
		figureDash, "-",
		ellipsisChar, ellipsis,
		nbsp, " ",
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
)

// Normalize converts smart quotes, dashes and the ellipsis character to
// ASCII and collapses whitespace runs into single spaces.
func Normalize(text string) string {
	return CollapseWhitespace(quoteReplacer.Replace(text))
}

// NormalizeLines applies the character replacements of Normalize but keeps
// line breaks, collapsing whitespace within each line only.
func NormalizeLines(text string) string {
	lines := strings.Split(strings.ReplaceAll(quoteReplacer.Replace(text), "\r\n", "\n"), "\n")

	for index, line := range lines {
		lines[index] = CollapseWhitespace(line)
	}

	return strings.Join(lines, "\n")
}

// CollapseWhitespace replaces runs of whitespace with one space and trims the ends.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// EnsureSentenceEnding appends a period unless text already ends with ".", "!" or "?".
func EnsureSentenceEnding(text string) string {
	trimmedText := strings.TrimSpace(text)
	if trimmedText == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(trimmedText)
	if isSentenceEnd(lastChar) {
		return trimmedText
	}

	if unicode.IsPunct(lastChar) && lastChar != '"' && lastChar != '\'' && lastChar != ')' {
		trimmedText = strings.TrimRightFunc(trimmedText, func(r rune) bool {
			return unicode.IsPunct(r) && !isSentenceEnd(r)
		})

		lastChar, _ = utf8.DecodeLastRuneInString(trimmedText)
		if isSentenceEnd(lastChar) {
			return trimmedText
		}
	}

	return trimmedText + "."
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
