package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webdigest/internal/keywords"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

// openai-stub is a deterministic OpenAI-compatible backend for local runs:
// keyword prompts get the lexicon keywords of the text, summary prompts get
// the leading words of the text.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}

func newMux(model string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) < 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		sys := strings.TrimSpace(req.Messages[0].Content)
		user := req.Messages[len(req.Messages)-1].Content
		var content string
		switch {
		case strings.HasPrefix(sys, "You extract search keywords"):
			kws, _ := (&keywords.Lexicon{}).Extract(r.Context(), user)
			if kws == nil {
				kws = []string{}
			}
			b, _ := json.Marshal(map[string]any{"keywords": kws})
			content = string(b)
		case strings.HasPrefix(sys, "You summarize web page text"):
			content = leadingWords(pageText(user), maxWords(req.MaxTokens))
		default:
			http.Error(w, "unexpected system", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})
	return mux
}

// pageText drops the instruction line of a summary prompt.
func pageText(user string) string {
	if _, after, ok := strings.Cut(user, "\n\n"); ok {
		return after
	}
	return user
}

func maxWords(maxTokens int) int {
	if maxTokens <= 0 {
		return 20
	}
	return max(1, maxTokens/4)
}

func leadingWords(text string, n int) string {
	f := strings.Fields(text)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}
