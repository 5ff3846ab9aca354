// Package summarize condenses page text chunk by chunk. A chunk whose
// summarization fails is kept verbatim, so summarizing never fails a page.
package summarize

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webdigest/internal/textproc"
)

// Tokenizer measures text length in model tokens.
type Tokenizer interface {
	CountTokens(text string) (int, error)
}

// Inference produces a deterministic summary of text bounded to between
// minLen and maxLen tokens.
type Inference interface {
	Summarize(ctx context.Context, text string, maxLen int, minLen int) (string, error)
}

// Bounds returns the summary length bounds for a chunk of n tokens:
// maxLen = min(200, max(n/2, 50)) and minLen = min(maxLen/2, 30).
func Bounds(n int) (maxLen int, minLen int) {
	maxLen = min(200, max(n/2, 50))
	minLen = min(maxLen/2, 30)
	return maxLen, minLen
}

// Summarizer runs the chunked summary. A nil Inference disables model calls:
// every chunk is kept verbatim and no fallback is counted.
type Summarizer struct {
	Tokenizer Tokenizer
	Inference Inference
	// ChunkSize is the number of words per chunk; zero means textproc.DefaultChunkSize.
	ChunkSize int
}

// Result is the outcome of summarizing one text.
type Result struct {
	// Summary is the per-chunk summaries joined by single spaces. It is not
	// summarized again, so its length is bounded per chunk only.
	Summary   string
	Chunks    int
	Fallbacks int
}

// SummarizeText splits text into chunks and summarizes each in order.
func (s *Summarizer) SummarizeText(ctx context.Context, text string) Result {
	chunks := textproc.Split(text, s.ChunkSize)
	parts := make([]string, 0, len(chunks))
	res := Result{Chunks: len(chunks)}
	for i, c := range chunks {
		out, ok := s.SummarizeChunk(ctx, c.Text())
		if !ok && s.Inference != nil {
			res.Fallbacks++
			log.Debug().Int("chunk", i).Int("words", len(c)).Msg("chunk kept verbatim")
		}
		parts = append(parts, out)
	}
	res.Summary = strings.Join(parts, " ")
	return res
}

// SummarizeChunk summarizes one chunk. On any tokenizer or inference failure
// it returns the chunk unchanged and false.
func (s *Summarizer) SummarizeChunk(ctx context.Context, chunk string) (string, bool) {
	if s.Inference == nil {
		return chunk, false
	}
	n, err := s.tokens(chunk)
	if err != nil {
		log.Warn().Err(err).Msg("tokenize failed; keeping chunk")
		return chunk, false
	}
	maxLen, minLen := Bounds(n)
	out, err := s.Inference.Summarize(ctx, chunk, maxLen, minLen)
	if err != nil {
		log.Warn().Err(err).Int("tokens", n).Msg("summarize failed; keeping chunk")
		return chunk, false
	}
	return out, true
}

func (s *Summarizer) tokens(text string) (int, error) {
	if s.Tokenizer == nil {
		return Heuristic{}.CountTokens(text)
	}
	return s.Tokenizer.CountTokens(text)
}
