package keywords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/webdigest/internal/cache"
	"github.com/hyperifyio/webdigest/internal/llm"
)

const systemMessage = "You extract search keywords. Respond with strict JSON only, no narration. The JSON schema is {\"keywords\": string[]}. Include only nouns, proper nouns and adjectives that appear in the text, copied verbatim. Exclude stop-words, verbs and punctuation."

// LLM extracts keywords with an OpenAI-compatible chat model. Any transport
// or contract failure is returned as an error so a Fallback can take over.
type LLM struct {
	Client llm.Client
	Model  string
	Cache  *cache.LLMCache
}

type llmPayload struct {
	Keywords []string `json:"keywords"`
}

func (e *LLM) Extract(ctx context.Context, text string) ([]string, error) {
	if e.Client == nil || strings.TrimSpace(e.Model) == "" {
		return nil, errors.New("keyword model not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	key := cache.KeyFrom(e.Model, systemMessage+"\n\n"+text)
	var cached llmPayload
	if e.Cache.GetJSON(ctx, key, &cached) {
		return dedupe(cached.Keywords), nil
	}
	log.Debug().Str("stage", "keywords").Str("model", e.Model).Int("text_len", len(text)).Msg("keyword prompt")
	resp, err := e.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: math.SmallestNonzeroFloat32,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword call: %w", err)
	}
	raw := stripCodeFence(llm.FirstContent(resp))
	if raw == "" {
		return nil, errors.New("keyword call: empty response")
	}
	var p llmPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parse keyword json: %w", err)
	}
	kws := dedupe(onlyPresent(p.Keywords, text))
	if err := e.Cache.SaveJSON(ctx, key, llmPayload{Keywords: kws}); err != nil {
		log.Debug().Err(err).Msg("keyword cache save failed")
	}
	return kws, nil
}

// onlyPresent drops terms the model invented; keywords must come from the text.
func onlyPresent(kws []string, text string) []string {
	lower := strings.ToLower(text)
	out := kws[:0]
	for _, k := range kws {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(k))) {
			out = append(out, k)
		}
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
