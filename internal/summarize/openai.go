package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/webdigest/internal/budget"
	"github.com/hyperifyio/webdigest/internal/cache"
	"github.com/hyperifyio/webdigest/internal/llm"
)

var (
	// ErrContextOverflow is returned when a chunk plus its summary budget does
	// not fit the model's context window.
	ErrContextOverflow = errors.New("chunk exceeds model context")
	// ErrEmptySummary is returned when the model answers with no text.
	ErrEmptySummary = errors.New("empty summary")
)

const summarySystemMessage = "You summarize web page text. Reply with the summary only, as plain prose in the language of the text, no preamble, no lists, no markdown."

// OpenAI summarizes with an OpenAI-compatible chat model using greedy
// decoding: temperature is sent as the smallest non-zero float because
// go-openai omits a zero value and servers then sample at their default.
// Wrap Client in an llm.Breaker to stop calling a failing backend.
type OpenAI struct {
	Client llm.Client
	Model  string
	Cache  *cache.LLMCache
	// Tokenizer sizes the prompt for the context check; nil estimates at
	// four bytes per token.
	Tokenizer Tokenizer
}

type cachedSummary struct {
	Summary string `json:"summary"`
}

func (o *OpenAI) Summarize(ctx context.Context, text string, maxLen int, minLen int) (string, error) {
	if o.Client == nil || strings.TrimSpace(o.Model) == "" {
		return "", errors.New("summarizer model not configured")
	}
	user := userPrompt(text, maxLen, minLen)
	prompt := o.promptTokens(summarySystemMessage, user)
	if !budget.Fits(o.Model, prompt, maxLen) {
		return "", fmt.Errorf("%w: %d prompt tokens for %s (window %d)", ErrContextOverflow, prompt, o.Model, budget.ContextWindow(o.Model))
	}
	key := cache.KeyFrom(o.Model, summarySystemMessage+"\n\n"+user)
	var hit cachedSummary
	if o.Cache.GetJSON(ctx, key, &hit) && hit.Summary != "" {
		return hit.Summary, nil
	}
	log.Debug().Str("stage", "summarize").Str("model", o.Model).Int("max_len", maxLen).Int("min_len", minLen).Int("prompt_tokens", prompt).Msg("summary prompt")
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   maxLen,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("summary call: %w", err)
	}
	out := llm.FirstContent(resp)
	if out == "" {
		return "", ErrEmptySummary
	}
	if err := o.Cache.SaveJSON(ctx, key, cachedSummary{Summary: out}); err != nil {
		log.Debug().Err(err).Msg("summary cache save failed")
	}
	return out, nil
}

func (o *OpenAI) promptTokens(parts ...string) int {
	if o.Tokenizer != nil {
		total := 0
		for _, p := range parts {
			n, err := o.Tokenizer.CountTokens(p)
			if err != nil {
				return budget.EstimateTokens(parts...)
			}
			total += n
		}
		return total
	}
	return budget.EstimateTokens(parts...)
}

func userPrompt(text string, maxLen int, minLen int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize the following text in at least %d and at most %d tokens.\n\n", minLen, maxLen)
	sb.WriteString(text)
	return sb.String()
}
