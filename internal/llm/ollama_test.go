package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Answer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream || req.Options.NumPredict != 256 {
			t.Errorf("Unexpected request: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1",
			Response:        "Pricing is listed on the plans page [1].",
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{
		BaseURL:         server.URL,
		Model:           "llama3.1",
		Timeout:         5,
		StrictCitations: true,
		MaxTokens:       256,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Answer(context.Background(), AnswerRequest{Query: "price?", Sources: twoSources()})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if resp.Answer != "Pricing is listed on the plans page [1]." {
		t.Errorf("Unexpected answer: %s", resp.Answer)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Expected 30 tokens, got %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Answer_EstimatesTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "abcd", Done: true})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "mistral"})
	resp, err := provider.Answer(context.Background(), AnswerRequest{Query: "q", Prompt: "1234"})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if resp.TokensUsed != 2 {
		t.Errorf("Expected estimate of 2 tokens, got %d", resp.TokensUsed)
	}
	if resp.Model != "mistral" {
		t.Errorf("Expected configured model, got %s", resp.Model)
	}
}

func TestOllamaProvider_Answer_ModelRequired(t *testing.T) {
	provider, err := NewOllamaProvider(Config{})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if _, err := provider.Answer(context.Background(), AnswerRequest{Query: "q"}); !errors.Is(err, ErrModelRequired) {
		t.Fatalf("Expected ErrModelRequired, got %v", err)
	}
}

func TestOllamaProvider_Answer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'nope' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "nope"})
	_, err := provider.Answer(context.Background(), AnswerRequest{Query: "q"})
	if err == nil || !strings.Contains(err.Error(), "model 'nope' not found") {
		t.Fatalf("Expected API error, got %v", err)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	down, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})
	if down.IsAvailable(context.Background()) {
		t.Error("Expected available to be false")
	}
}
