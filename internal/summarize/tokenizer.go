package summarize

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used by Tiktoken when none is set.
const DefaultEncoding = "cl100k_base"

// Tiktoken counts tokens with an OpenAI BPE encoding. The encoding is loaded
// on first use; tiktoken-go downloads it unless TIKTOKEN_CACHE_DIR holds a copy.
type Tiktoken struct {
	Encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func (t *Tiktoken) CountTokens(text string) (int, error) {
	t.once.Do(func() {
		name := t.Encoding
		if name == "" {
			name = DefaultEncoding
		}
		t.enc, t.err = tiktoken.GetEncoding(name)
		if t.err != nil {
			t.err = fmt.Errorf("load encoding %s: %w", name, t.err)
		}
	})
	if t.err != nil {
		return 0, t.err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

var wordPieceRe = regexp.MustCompile(`[\p{L}\p{N}]+|[^\s\p{L}\p{N}]`)

// Heuristic approximates a subword tokenizer: every letter/digit run and
// every punctuation rune counts as one token, and long runs count once per
// four characters.
type Heuristic struct{}

func (Heuristic) CountTokens(text string) (int, error) {
	n := 0
	for _, m := range wordPieceRe.FindAllString(text, -1) {
		r := len([]rune(m))
		n += max(1, (r+3)/4)
	}
	return n, nil
}

// FallbackTokenizer tries Primary and uses Secondary when it fails, for example when
// the tiktoken encoding cannot be loaded offline.
type FallbackTokenizer struct {
	Primary   Tokenizer
	Secondary Tokenizer
}

func (f FallbackTokenizer) CountTokens(text string) (int, error) {
	if f.Primary != nil {
		if n, err := f.Primary.CountTokens(text); err == nil {
			return n, nil
		}
	}
	if f.Secondary == nil {
		return Heuristic{}.CountTokens(text)
	}
	return f.Secondary.CountTokens(text)
}
