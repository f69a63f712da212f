package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateChatCompletion(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"content": `{"ok":true}`},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, 5*time.Second)
	resp, err := c.CreateChatCompletion(context.Background(), ChatRequest{
		Model:     "openai/gpt-4o-mini",
		Messages:  []Message{{Role: "user", Content: "hello"}},
		MaxTokens: 100,
		ResponseFormat: &ResponseFormat{
			Name:   "answer",
			Schema: map[string]any{"type": "object"},
			Strict: true,
		},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["model"] != "openai/gpt-4o-mini" {
		t.Errorf("unexpected model %v", gotBody["model"])
	}
	rf, ok := gotBody["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_schema" {
		t.Errorf("expected json_schema response format, got %v", gotBody["response_format"])
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Content != `{"ok":true}` {
		t.Fatalf("unexpected choices: %+v", resp.Choices)
	}
	if resp.Usage.PromptTokens != 10 || resp.Usage.CompletionTokens != 5 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestCreateChatCompletionSurfacesRefusalAndFinishReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"refusal": "I cannot help with that"},
					"finish_reason": "length",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, 5*time.Second)
	resp, err := c.CreateChatCompletion(context.Background(), ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("CreateChatCompletion: %v", err)
	}
	if resp.Choices[0].Refusal != "I cannot help with that" {
		t.Errorf("refusal not surfaced: %+v", resp.Choices[0])
	}
	if resp.Choices[0].FinishReason != FinishReasonLength {
		t.Errorf("finish reason not surfaced: %+v", resp.Choices[0])
	}
}

func TestCreateChatCompletionNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, 5*time.Second)
	if _, err := c.CreateChatCompletion(context.Background(), ChatRequest{Model: "m"}); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestCreateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2}, "index": 0}},
		})
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, 5*time.Second)
	vec, err := c.CreateEmbedding(context.Background(), "hello", "openai/text-embedding-ada-002")
	if err != nil {
		t.Fatalf("CreateEmbedding: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}
