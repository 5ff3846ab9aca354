// Package budget knows how much text fits into a summarization model's
// context window.
package budget

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultContextWindow is assumed for models not recognized by name.
const DefaultContextWindow = 8192

// minHeadroom is the smallest safety margin kept free in any window.
const minHeadroom = 32

var knownWindows = map[string]int{
	"bart-large-cnn":     1_024,
	"distilbart-cnn":     1_024,
	"t5-small":           512,
	"gpt-3.5-turbo":      16_384,
	"gpt-4o":             128_000,
	"gpt-4o-mini":        128_000,
	"gpt-4-turbo":        128_000,
	"gpt-4.1":            1_000_000,
	"gpt-4.1-mini":       1_000_000,
	"llama-3":            8_192,
	"llama-3.1":          128_000,
	"mistral":            32_768,
	"gpt-oss-20b":        4_096,
	"openai/gpt-oss-20b": 4_096,
}

// sizeSuffix matches names like "mystery-32k" or "long-2m".
var sizeSuffix = regexp.MustCompile(`(?i)(\d+)(k|m)$`)

// ContextWindow returns the context size of model in tokens: an exact match
// from the known table, then a size suffix in the name, then "-mini"
// models at 128k, otherwise DefaultContextWindow.
func ContextWindow(model string) int {
	name := strings.ToLower(strings.TrimSpace(model))
	if n, ok := knownWindows[name]; ok {
		return n
	}
	if m := sizeSuffix.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			if strings.EqualFold(m[2], "m") {
				return n * 1_000_000
			}
			return n * 1_000
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return DefaultContextWindow
}

// Headroom is the margin kept free for message framing and tokenizer
// mismatch: 5% of the window, at least 32 tokens. It scales with the window
// so 1k-token summarization models still take a full default chunk.
func Headroom(model string) int {
	return max(minHeadroom, int(math.Ceil(float64(ContextWindow(model))*0.05)))
}

// Fits reports whether a prompt of promptTokens leaves room for
// reservedOutput tokens plus Headroom in model's window.
func Fits(model string, promptTokens int, reservedOutput int) bool {
	return promptTokens+max(0, reservedOutput)+Headroom(model) < ContextWindow(model)
}

// EstimateTokens approximates the token count of parts at four bytes per
// token, rounding each part up.
func EstimateTokens(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += (len(p) + 3) / 4
	}
	return total
}
