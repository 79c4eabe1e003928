package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/lumify/internal/model"
)

// MockProvider is a mock implementation of Provider for testing
type MockProvider struct {
	answer    *AnswerResponse
	err       error
	available bool
	calls     int
	lastReq   AnswerRequest
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	m.calls++
	m.lastReq = req
	return m.answer, m.err
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestNewSynthesizer_DisabledProvider(t *testing.T) {
	s, err := NewSynthesizer(DefaultConfig())
	if err != nil {
		t.Fatalf("Expected no error for disabled provider, got %v", err)
	}
	if s.IsEnabled() {
		t.Error("Expected synthesizer to be disabled")
	}
	if s.ProviderName() != "none" {
		t.Errorf("Expected provider name none, got %s", s.ProviderName())
	}

	_, _, err = s.Synthesize(context.Background(), "q", twoSources())
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
	if !errors.Is(s.Check(context.Background()), ErrDisabled) {
		t.Error("Expected Check to report disabled")
	}
}

func TestNewSynthesizer_UnknownProvider(t *testing.T) {
	if _, err := NewSynthesizer(Config{Provider: "gemini"}); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"claude alias", Config{Provider: "Claude", APIKey: "k"}, "anthropic", false},
		{"ollama", Config{Provider: "ollama"}, "ollama", false},
		{"disabled", Config{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if tt.wantName == "" {
				if err == nil && p != nil {
					t.Errorf("Expected nil provider, got %s", p.Name())
				}
				return
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}

func TestSynthesizer_Synthesize_Success(t *testing.T) {
	mock := &MockProvider{answer: &AnswerResponse{Answer: "Monthly [2].", CitedOrdinals: []int{2}, Model: "mock-1"}}
	s := NewSynthesizerWithProvider(mock, Config{MaxTokens: 300})

	resp, meta, err := s.Synthesize(context.Background(), "billing?", twoSources())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !resp.Success || resp.Answer() != "Monthly [2]." {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if len(resp.DirectAnswer.Sources) != 2 {
		t.Errorf("Expected sources to be kept in order, got %v", resp.DirectAnswer.Sources)
	}
	if meta.Model != "mock-1" {
		t.Errorf("Unexpected meta: %+v", meta)
	}
	if mock.lastReq.MaxTokens != 300 || mock.lastReq.Query != "billing?" {
		t.Errorf("Unexpected request: %+v", mock.lastReq)
	}
}

func TestSynthesizer_Synthesize_NoSources(t *testing.T) {
	mock := &MockProvider{}
	s := NewSynthesizerWithProvider(mock, Config{})

	resp, meta, err := s.Synthesize(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if mock.calls != 0 {
		t.Error("Provider must not be called without sources")
	}
	if meta != nil || resp.NoResults == nil || resp.NoResults.Message != noSourcesMessage {
		t.Errorf("Expected no-results response, got %+v", resp)
	}
}

func TestSynthesizer_Synthesize_EmptyAnswer(t *testing.T) {
	s := NewSynthesizerWithProvider(&MockProvider{answer: &AnswerResponse{}}, Config{})

	resp, _, err := s.Synthesize(context.Background(), "q", twoSources())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if resp.DirectAnswer != nil || resp.NoResults == nil {
		t.Errorf("Expected no-results response, got %+v", resp)
	}
}

func TestSynthesizer_Synthesize_Errors(t *testing.T) {
	s := NewSynthesizerWithProvider(&MockProvider{err: ErrCitationLeak}, Config{})

	if _, _, err := s.Synthesize(context.Background(), "q", twoSources()); !errors.Is(err, ErrCitationLeak) {
		t.Errorf("Expected wrapped provider error, got %v", err)
	}
	if _, _, err := s.Synthesize(context.Background(), "  ", twoSources()); err == nil {
		t.Error("Expected error for empty query")
	}
}

func TestSynthesizer_Check(t *testing.T) {
	if err := NewSynthesizerWithProvider(&MockProvider{available: true}, Config{}).Check(context.Background()); err != nil {
		t.Errorf("Expected available provider, got %v", err)
	}
	if err := NewSynthesizerWithProvider(&MockProvider{}, Config{}).Check(context.Background()); err == nil {
		t.Error("Expected unavailable provider error")
	}
}

func TestBuildPrompt(t *testing.T) {
	sources := append(twoSources(), model.Source{URL: "https://docs.example.test/raw"})
	prompt := BuildPrompt("  How do refunds work? ", sources)

	for _, want := range []string{
		"between 1 and 3",
		"[1] Pricing - https://docs.example.test/pricing",
		"[2] Billing FAQ - https://docs.example.test/billing",
		"[3] Untitled - https://docs.example.test/raw",
		"Question: How do refunds work?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestBuildPrompt_NoSources(t *testing.T) {
	if !strings.Contains(BuildPrompt("q", nil), "(No sources available)") {
		t.Error("Expected no-sources notice")
	}
}

func TestBuildPrompt_ManySources(t *testing.T) {
	sources := make([]model.Source, 25)
	for i := range sources {
		sources[i] = model.Source{URL: "https://example.test/", Title: "T"}
	}
	prompt := BuildPrompt("q", sources)
	if !strings.Contains(prompt, "... and 5 more sources") {
		t.Error("Expected truncation notice")
	}
	if strings.Contains(prompt, "[21]") {
		t.Error("Expected at most 20 sources in prompt")
	}
}

func TestCitedOrdinals(t *testing.T) {
	got := CitedOrdinals("a [2] b [1] c [2] d [x] e [10]")
	want := []int{2, 1, 10}
	if len(got) != len(want) {
		t.Fatalf("CitedOrdinals() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CitedOrdinals()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCheckCitations(t *testing.T) {
	tests := []struct {
		ordinals []int
		count    int
		wantErr  bool
	}{
		{nil, 0, false},
		{[]int{1, 2}, 2, false},
		{[]int{3}, 2, true},
		{[]int{0}, 2, true},
		{[]int{1}, 0, true},
	}
	for _, tt := range tests {
		err := CheckCitations(tt.ordinals, tt.count)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckCitations(%v, %d) error = %v", tt.ordinals, tt.count, err)
		}
		if err != nil && !errors.Is(err, ErrCitationLeak) {
			t.Errorf("Expected ErrCitationLeak, got %v", err)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	resp := &model.SearchResponse{
		Success: true,
		DirectAnswer: &model.DirectAnswer{
			Answer:  "Monthly [2].",
			Sources: append(twoSources(), model.Source{URL: "https://x.test/"}),
		},
	}
	md := RenderMarkdown("billing?", resp, &AnswerResponse{Model: "gpt-4o-mini", TokensUsed: 42})

	for _, want := range []string{
		"# billing?",
		"Monthly [2].",
		"1. [Pricing](https://docs.example.test/pricing)",
		"2. [Billing FAQ](https://docs.example.test/billing)",
		"3. [https://x.test/](https://x.test/)",
		"_Generated by gpt-4o-mini (42 tokens)_",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q, got:\n%s", want, md)
		}
	}

	empty := RenderMarkdown("q", &model.SearchResponse{Success: true}, nil)
	if !strings.Contains(empty, "_No answer._") {
		t.Errorf("Expected no-answer marker, got %s", empty)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.HTTP.HTTPSProxy = "http://proxy.test:3128"

	c := ConfigFromModel(cfg)
	if c.Provider != "ollama" || !c.StrictCitations || c.MaxTokens != 1000 || c.HTTPSProxy != "http://proxy.test:3128" {
		t.Errorf("Unexpected config: %+v", c)
	}
}
