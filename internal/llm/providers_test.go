package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAIClientRetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Model    string `json:"model"`
			Seed     *int   `json:"seed"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if hits.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
			return
		}

		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		if req.Seed == nil || *req.Seed != 42 {
			t.Errorf("expected seed 42, got %v", req.Seed)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Stock Return: 1.2% (up)"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":6,"total_tokens":18}}`))
	}))
	defer server.Close()

	seed := 42
	cfg := DefaultOpenAIConfig()
	cfg.APIKey = "test"
	cfg.BaseURL = server.URL + "/v1"
	cfg.Seed = &seed
	cfg.Retry = fastPolicy(2)
	cfg.Timeout = 5 * time.Second

	client := NewOpenAIClient(cfg, discardLogger())
	res := client.Complete(context.Background(), "You forecast stocks.", "Predict AAPL")
	if !res.OK() {
		t.Fatalf("Complete returned error: %v", res.Err)
	}
	if res.Text != "Stock Return: 1.2% (up)" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Usage.InputTokens != 12 || res.Usage.OutputTokens != 6 {
		t.Errorf("unexpected usage %+v", res.Usage)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", hits.Load())
	}
}

func TestOpenAIClientDoesNotRetryBadRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"maximum context length exceeded","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	cfg := DefaultOpenAIConfig()
	cfg.APIKey = "test"
	cfg.BaseURL = server.URL + "/v1"
	cfg.Retry = fastPolicy(3)

	res := NewOpenAIClient(cfg, discardLogger()).Complete(context.Background(), "", "too long")
	if res.OK() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Err.Error(), "maximum context length") {
		t.Errorf("unexpected error %v", res.Err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single request, got %d", hits.Load())
	}
}

func TestOpenAIReasoningModelMergesSystemPrompt(t *testing.T) {
	cfg := DefaultOpenAIConfig()
	cfg.Model = "o3-mini"
	client := NewOpenAIClient(cfg, discardLogger())

	req := client.buildRequest("system text", "user text")
	if len(req.Messages) != 1 {
		t.Fatalf("expected merged message, got %d", len(req.Messages))
	}
	if req.Messages[0].Content != "system text\n\nuser text" {
		t.Errorf("unexpected content %q", req.Messages[0].Content)
	}
	if req.MaxCompletionTokens != cfg.MaxTokens || req.MaxTokens != 0 {
		t.Errorf("expected max completion tokens only, got %+v", req)
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "Generate a short description") {
			t.Errorf("prompt not forwarded: %s", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-haiku-20240307",
			"content":[{"type":"text","text":"Description: Apple designs phones."}],
			"stop_reason":"end_turn","stop_sequence":null,
			"usage":{"input_tokens":20,"output_tokens":7}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{
		APIKey:    "test",
		Model:     "claude-3-haiku-20240307",
		BaseURL:   server.URL,
		MaxTokens: 256,
		Timeout:   5 * time.Second,
		Retry:     fastPolicy(0),
	}, discardLogger())

	res := client.Complete(context.Background(), "", "Generate a short description for stock AAPL's company.")
	if !res.OK() {
		t.Fatalf("Complete returned error: %v", res.Err)
	}
	if res.Text != "Description: Apple designs phones." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Usage.InputTokens != 20 || res.Usage.OutputTokens != 7 {
		t.Errorf("unexpected usage %+v", res.Usage)
	}
}
