package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
)

type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}}}, nil
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingClient{err: errors.New("backend down")}
	b := NewBreaker("test", inner, BreakerConfig{MaxFailures: 2, Timeout: time.Minute})
	for i := 0; i < 2; i++ {
		if _, err := b.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state=%v, want open", b.State())
	}
	_, err := b.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open circuit must not reach backend; calls=%d", inner.calls)
	}
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	inner := &countingClient{}
	b := NewBreaker("test", inner, BreakerConfig{})
	resp, err := b.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FirstContent(resp) != "ok" {
		t.Fatalf("unexpected content %q", FirstContent(resp))
	}
}

func TestFirstContent_NoChoices(t *testing.T) {
	if got := FirstContent(openai.ChatCompletionResponse{}); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
