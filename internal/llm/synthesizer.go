package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/lumify/internal/model"
)

// ErrDisabled is returned when no provider is configured
var ErrDisabled = errors.New("LLM synthesis is disabled (set llm.provider)")

const noSourcesMessage = "No sources available to answer this question."

// Synthesizer turns provider answers into search responses so local answers
// render exactly like remote ones
type Synthesizer struct {
	provider Provider
	config   Config
}

// NewSynthesizer creates a Synthesizer. An empty provider yields a disabled
// Synthesizer and no error.
func NewSynthesizer(config Config) (*Synthesizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{provider: provider, config: config}, nil
}

// NewSynthesizerWithProvider wraps an existing provider
func NewSynthesizerWithProvider(provider Provider, config Config) *Synthesizer {
	return &Synthesizer{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (s *Synthesizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the provider name, or "none"
func (s *Synthesizer) ProviderName() string {
	if !s.IsEnabled() {
		return "none"
	}
	return s.provider.Name()
}

// Check verifies the provider is reachable
func (s *Synthesizer) Check(ctx context.Context) error {
	if !s.IsEnabled() {
		return ErrDisabled
	}
	if !s.provider.IsAvailable(ctx) {
		return fmt.Errorf("LLM provider %s is not available", s.provider.Name())
	}
	return nil
}

// Synthesize answers query from sources. With no sources the response is a
// successful no-results response and the provider is not called.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, sources []model.Source) (*model.SearchResponse, *AnswerResponse, error) {
	if !s.IsEnabled() {
		return nil, nil, ErrDisabled
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil, fmt.Errorf("query is empty")
	}
	if len(sources) == 0 {
		return &model.SearchResponse{
			Success:   true,
			NoResults: &model.NoResults{Message: noSourcesMessage},
		}, nil, nil
	}

	answer, err := s.provider.Answer(ctx, AnswerRequest{
		Query:     query,
		Sources:   sources,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}

	resp := &model.SearchResponse{Success: true}
	if answer.Answer == "" {
		resp.NoResults = &model.NoResults{}
		return resp, answer, nil
	}

	resp.DirectAnswer = &model.DirectAnswer{
		Answer:  answer.Answer,
		Sources: sources,
	}
	return resp, answer, nil
}

// RenderMarkdown renders a synthesized answer with its numbered sources
func RenderMarkdown(query string, resp *model.SearchResponse, meta *AnswerResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(query))

	answer := resp.Answer()
	if answer == "" {
		b.WriteString("_No answer._\n")
		return b.String()
	}
	b.WriteString(answer)
	b.WriteString("\n")

	if sources := resp.DirectAnswer.Sources; len(sources) > 0 {
		b.WriteString("\n## Sources\n\n")
		for i, src := range sources {
			title := src.Title
			if title == "" {
				title = src.PageTitle
			}
			if title == "" {
				title = src.URL
			}
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, title, src.URL)
		}
	}

	if meta != nil {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "_Generated by %s", meta.Model)
		if meta.TokensUsed > 0 {
			fmt.Fprintf(&b, " (%d tokens)", meta.TokensUsed)
		}
		b.WriteString("_\n")
	}

	return b.String()
}
