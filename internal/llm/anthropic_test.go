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

func anthropicServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("Expected anthropic-version header %s, got %s", anthropicVersion, r.Header.Get("anthropic-version"))
		}

		switch r.URL.Path {
		case "/v1/models":
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"data": []}`))
		case "/v1/messages":
			var req anthropicRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.System != systemPrompt || len(req.Messages) != 1 {
				t.Errorf("Unexpected request: %+v", req)
			}
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func textResponse(blocks ...string) anthropicResponse {
	resp := anthropicResponse{ID: "msg_123", Type: "message", Role: "assistant", Model: "claude-3-5-haiku-latest"}
	for _, text := range blocks {
		resp.Content = append(resp.Content, struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "text", Text: text})
	}
	resp.Usage.InputTokens = 40
	resp.Usage.OutputTokens = 10
	return resp
}

func TestAnthropicProvider_Answer_Success(t *testing.T) {
	server := anthropicServer(t, http.StatusOK, textResponse("Billing is monthly ", "[2]."))

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL + "/", StrictCitations: true})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Answer(context.Background(), AnswerRequest{Query: "billing?", Sources: twoSources()})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if resp.Answer != "Billing is monthly [2]." {
		t.Errorf("Unexpected answer: %q", resp.Answer)
	}
	if resp.TokensUsed != 50 {
		t.Errorf("Expected 50 tokens, got %d", resp.TokensUsed)
	}
	if len(resp.CitedOrdinals) != 1 || resp.CitedOrdinals[0] != 2 {
		t.Errorf("Unexpected cited ordinals: %v", resp.CitedOrdinals)
	}
}

func TestAnthropicProvider_Answer_StrictRejectsZero(t *testing.T) {
	server := anthropicServer(t, http.StatusOK, textResponse("Nothing [0]."))

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, StrictCitations: true})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Answer(context.Background(), AnswerRequest{Query: "q", Sources: twoSources()})
	if !errors.Is(err, ErrCitationLeak) {
		t.Fatalf("Expected ErrCitationLeak, got %v", err)
	}
}

func TestAnthropicProvider_Answer_APIError(t *testing.T) {
	apiErr := anthropicError{Type: "error"}
	apiErr.Error.Type = "authentication_error"
	apiErr.Error.Message = "invalid x-api-key"
	server := anthropicServer(t, http.StatusUnauthorized, apiErr)

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Answer(context.Background(), AnswerRequest{Query: "q", Sources: twoSources()})
	if err == nil || !strings.Contains(err.Error(), "authentication_error - invalid x-api-key") {
		t.Fatalf("Expected API error, got %v", err)
	}
}

func TestAnthropicProvider_Answer_NoContent(t *testing.T) {
	server := anthropicServer(t, http.StatusOK, textResponse())

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Answer(context.Background(), AnswerRequest{Query: "q"}); err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestAnthropicProvider_MissingKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	ok := anthropicServer(t, http.StatusOK, nil)
	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: ok.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	denied := anthropicServer(t, http.StatusUnauthorized, nil)
	provider, _ = NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: denied.URL})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false")
	}
}
