package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/lumify/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the llm and http settings to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Timeout:         cfg.LLM.Timeout,
		StrictCitations: cfg.LLM.StrictCitations,
		MaxTokens:       cfg.LLM.MaxTokens,
		HTTPProxy:       cfg.HTTP.HTTPProxy,
		HTTPSProxy:      cfg.HTTP.HTTPSProxy,
		NoProxy:         cfg.HTTP.NoProxy,
	}
}
