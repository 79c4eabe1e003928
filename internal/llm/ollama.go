package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// OllamaProvider answers with a local model through the Ollama generate API
type OllamaProvider struct {
	api    *jsonAPI
	config Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`

	// Only present when done
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

// ErrModelRequired is returned when no Ollama model is configured
var ErrModelRequired = errors.New("ollama model must be specified (e.g., llama3.1:8b, mistral)")

// NewOllamaProvider targets BaseURL, or the default local daemon
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		api: &jsonAPI{
			client:    config.httpClient(60 * time.Second), // Local models can be slow
			baseURL:   strings.TrimSuffix(baseURL, "/"),
			errorText: ollamaErrorText,
		},
		config: config,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks if Ollama is running by listing local models
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	if err := p.api.ping(ctx, "/api/tags"); err != nil {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (%s): %v\n", p.api.baseURL, err)
		return false
	}
	return true
}

// Answer runs a single non-streaming generation
func (p *OllamaProvider) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	name := p.config.model(req, "")
	if name == "" {
		return nil, ErrModelRequired
	}

	prompt := p.config.prompt(req)
	gen := ollamaRequest{
		Model:  name,
		Prompt: prompt,
		System: systemPrompt,
		Options: ollamaOptions{
			Temperature: 0.2,
			NumPredict:  p.config.maxTokens(req),
		},
	}

	var resp ollamaResponse
	if err := p.api.post(ctx, "/api/generate", gen, &resp); err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	// Some models report no counts; estimate at 4 characters per token
	tokensUsed := resp.PromptEvalCount + resp.EvalCount
	if tokensUsed == 0 {
		tokensUsed = (len(prompt) + len(resp.Response)) / 4
	}

	if resp.Model != "" {
		name = resp.Model
	}
	return p.config.finish(req, resp.Response, name, tokensUsed)
}

func ollamaErrorText(body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	return apiErr.Error
}
