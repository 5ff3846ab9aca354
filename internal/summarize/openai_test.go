package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/webdigest/internal/cache"
	"github.com/hyperifyio/webdigest/internal/llm"
)

func newOpenAIServer(t *testing.T, reply string, got *openai.ChatCompletionRequest, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		*calls++
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:      "cmpl-1",
			Object:  "chat.completion",
			Choices: []openai.ChatCompletionChoice{{Index: 0, Message: openai.ChatCompletionMessage{Role: "assistant", Content: reply}, FinishReason: "stop"}},
		})
	}))
}

func clientFor(srv *httptest.Server) llm.Client {
	return llm.NewOpenAI(llm.Endpoint{BaseURL: srv.URL + "/v1", APIKey: "test", HTTPClient: srv.Client()})
}

func TestOpenAI_DeterministicRequestAndCache(t *testing.T) {
	var req openai.ChatCompletionRequest
	var calls int
	srv := newOpenAIServer(t, "  A short summary.  ", &req, &calls)
	defer srv.Close()

	o := &OpenAI{Client: clientFor(srv), Model: "gpt-4o-mini", Cache: &cache.LLMCache{Dir: t.TempDir()}}
	got, err := o.Summarize(context.Background(), "Some page text about pasta.", 60, 30)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "A short summary." {
		t.Fatalf("got %q", got)
	}
	if req.Temperature > 1e-6 || req.MaxTokens != 60 || req.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected request: temp=%v max=%d model=%s", req.Temperature, req.MaxTokens, req.Model)
	}
	if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "at least 30 and at most 60") {
		t.Fatalf("bounds missing from prompt: %+v", req.Messages)
	}
	if _, err := o.Summarize(context.Background(), "Some page text about pasta.", 60, 30); err != nil {
		t.Fatalf("cached call: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestOpenAI_TemperatureOnTheWire(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "ok"}}},
		})
	}))
	defer srv.Close()

	o := &OpenAI{Client: clientFor(srv), Model: "gpt-4o-mini"}
	if _, err := o.Summarize(context.Background(), "Some page text.", 50, 25); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	temp, ok := body["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature missing from request body: %v", body)
	}
	if temp <= 0 || temp > 1e-6 {
		t.Fatalf("temperature = %v, want near zero", temp)
	}
	if body["max_tokens"] != float64(50) {
		t.Fatalf("max_tokens = %v", body["max_tokens"])
	}
}

func TestOpenAI_EmptyReplyIsAnError(t *testing.T) {
	var req openai.ChatCompletionRequest
	var calls int
	srv := newOpenAIServer(t, "   ", &req, &calls)
	defer srv.Close()
	o := &OpenAI{Client: clientFor(srv), Model: "gpt-4o-mini"}
	if _, err := o.Summarize(context.Background(), "text", 50, 25); !errors.Is(err, ErrEmptySummary) {
		t.Fatalf("expected ErrEmptySummary, got %v", err)
	}
}

func TestOpenAI_ContextOverflowSkipsCall(t *testing.T) {
	var req openai.ChatCompletionRequest
	var calls int
	srv := newOpenAIServer(t, "x", &req, &calls)
	defer srv.Close()
	o := &OpenAI{Client: clientFor(srv), Model: "bart-large-cnn"}
	_, err := o.Summarize(context.Background(), words(1000), 200, 30)
	if !errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected ErrContextOverflow, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("overflowing chunk must not reach the model")
	}
}

func TestOpenAI_TokenizerSizesPrompt(t *testing.T) {
	var req openai.ChatCompletionRequest
	var calls int
	srv := newOpenAIServer(t, "short", &req, &calls)
	defer srv.Close()
	o := &OpenAI{Client: clientFor(srv), Model: "bart-large-cnn", Tokenizer: wordCount{}}
	if _, err := o.Summarize(context.Background(), words(100), 100, 10); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if _, err := o.Summarize(context.Background(), words(1000), 100, 10); !errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected overflow by word count, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSummarizer_DefaultChunkReachesSmallContextModel(t *testing.T) {
	var req openai.ChatCompletionRequest
	var calls int
	srv := newOpenAIServer(t, "short", &req, &calls)
	defer srv.Close()
	s := &Summarizer{
		Tokenizer: Heuristic{},
		Inference: &OpenAI{Client: clientFor(srv), Model: "bart-large-cnn", Tokenizer: Heuristic{}},
		ChunkSize: 500,
	}
	res := s.SummarizeText(context.Background(), words(500))
	if res.Fallbacks != 0 || calls != 1 {
		t.Fatalf("fallbacks=%d calls=%d, want the chunk summarized by the model", res.Fallbacks, calls)
	}
	if res.Summary != "short" || req.MaxTokens != 200 {
		t.Fatalf("summary=%q max_tokens=%d", res.Summary, req.MaxTokens)
	}
}

func TestOpenAI_BreakerTurnsFailuresIntoFallbacks(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	breaker := llm.NewBreaker("summarize", clientFor(srv), llm.BreakerConfig{MaxFailures: 2})
	s := &Summarizer{Tokenizer: wordCount{}, Inference: &OpenAI{Client: breaker, Model: "gpt-4o-mini"}, ChunkSize: 2}
	res := s.SummarizeText(context.Background(), "a b c d e f g h")
	if res.Summary != "a b c d e f g h" || res.Fallbacks != 4 {
		t.Fatalf("got %+v", res)
	}
	if calls != 2 {
		t.Fatalf("breaker should stop calls after 2 failures, backend saw %d", calls)
	}
}
