// Package llm holds the chat-completion seam shared by keyword extraction
// and summarization, with an OpenAI-compatible adapter and a circuit breaker.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the one call the pipeline makes to a chat model.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// ErrModelNotServed is returned by CheckModel when the backend is reachable
// but does not list the configured model.
var ErrModelNotServed = errors.New("model not served by backend")

// OpenAIProvider talks to any OpenAI-compatible endpoint (OpenAI, vLLM,
// llama.cpp server, Ollama). It satisfies Client and ModelLister.
type OpenAIProvider struct {
	*openai.Client
}

// Endpoint locates an OpenAI-compatible backend.
type Endpoint struct {
	BaseURL    string // empty means the public OpenAI API
	APIKey     string
	HTTPClient *http.Client
}

// NewOpenAI builds a provider for e.
func NewOpenAI(e Endpoint) *OpenAIProvider {
	cfg := openai.DefaultConfig(e.APIKey)
	if e.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(e.BaseURL, "/")
	}
	if e.HTTPClient != nil {
		cfg.HTTPClient = e.HTTPClient
	}
	return &OpenAIProvider{Client: openai.NewClientWithConfig(cfg)}
}

// CheckModel lists the backend's models and reports whether model is among
// them. Backends that list nothing are given the benefit of the doubt.
func CheckModel(ctx context.Context, lister ModelLister, model string) (int, error) {
	list, err := lister.ListModels(ctx)
	if err != nil {
		return 0, fmt.Errorf("list models: %w", err)
	}
	if len(list.Models) == 0 {
		return 0, nil
	}
	for _, m := range list.Models {
		if m.ID == model {
			return len(list.Models), nil
		}
	}
	return len(list.Models), fmt.Errorf("%w: %s", ErrModelNotServed, model)
}

// FirstContent returns the trimmed content of the first choice, or "" when
// the response has no choices.
func FirstContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
