package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/util"
)

// ErrCitationLeak is returned in strict mode when an answer cites an
// ordinal with no matching source
var ErrCitationLeak = errors.New("citation leak")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Answer writes an answer to the query grounded in the numbered sources
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AnswerRequest contains the input for answer synthesis
type AnswerRequest struct {
	// Query is the visitor's question
	Query string

	// Sources are cited as [1]..[n] in order
	Sources []model.Source

	// Prompt overrides the default prompt when set
	Prompt string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// AnswerResponse contains the synthesized answer
type AnswerResponse struct {
	// Answer is the answer text with [n] citation markers
	Answer string

	// CitedOrdinals are the distinct ordinals cited, in order of appearance
	CitedOrdinals []int

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictCitations rejects answers citing ordinals outside the source list
	StrictCitations bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:        "", // Disabled by default
		Timeout:         30,
		StrictCitations: true,
		MaxTokens:       1000,
	}
}

const systemPrompt = "You answer visitor questions for a website search widget. " +
	"Use only the numbered sources you are given and cite them inline as [n]."

// maxPromptSources bounds the prompt size
const maxPromptSources = 20

// BuildPrompt constructs the default answer prompt with numbered sources
func BuildPrompt(query string, sources []model.Source) string {
	var b strings.Builder

	b.WriteString("RULES:\n")
	b.WriteString("1. Answer ONLY from the sources below.\n")
	fmt.Fprintf(&b, "2. Cite sources inline as [n] where n is between 1 and %d. Never cite any other number.\n", len(sources))
	b.WriteString("3. If the sources do not answer the question, say so plainly.\n")
	b.WriteString("4. Markdown links of the form [label](url) are allowed, but only to source URLs.\n")
	b.WriteString("5. Keep the answer under 120 words.\n\n")

	b.WriteString("Sources:\n")
	if len(sources) == 0 {
		b.WriteString("(No sources available)\n")
	}
	for i, s := range sources {
		if i >= maxPromptSources {
			fmt.Fprintf(&b, "... and %d more sources\n", len(sources)-maxPromptSources)
			break
		}
		title := s.Title
		if title == "" {
			title = s.PageTitle
		}
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "[%d] %s - %s\n", i+1, title, s.URL)
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", strings.TrimSpace(query))
	return b.String()
}

var citationRe = regexp.MustCompile(`\[(\d+)\]`)

// CitedOrdinals returns the distinct [n] ordinals in text, in order of
// appearance
func CitedOrdinals(text string) []int {
	seen := make(map[int]bool)
	var ordinals []int
	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		ordinals = append(ordinals, n)
	}
	return ordinals
}

// CheckCitations fails with ErrCitationLeak if any ordinal falls outside
// 1..sourceCount
func CheckCitations(ordinals []int, sourceCount int) error {
	for _, n := range ordinals {
		if n < 1 || n > sourceCount {
			return fmt.Errorf("%w: [%d] cited with %d sources", ErrCitationLeak, n, sourceCount)
		}
	}
	return nil
}

// finish trims the answer, extracts citations and applies strict mode
func (c Config) finish(req AnswerRequest, text, model string, tokens int) (*AnswerResponse, error) {
	answer := strings.TrimSpace(text)
	cited := CitedOrdinals(answer)

	if c.StrictCitations {
		if err := CheckCitations(cited, len(req.Sources)); err != nil {
			return nil, err
		}
	}

	return &AnswerResponse{
		Answer:        answer,
		CitedOrdinals: cited,
		Model:         model,
		TokensUsed:    tokens,
	}, nil
}

func (c Config) prompt(req AnswerRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.Query, req.Sources)
}

func (c Config) model(req AnswerRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) maxTokens(req AnswerRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}

// httpClient builds a proxy-aware client with the configured timeout
func (c Config) httpClient(fallback time.Duration) *http.Client {
	timeout := time.Duration(c.Timeout) * time.Second
	if timeout == 0 {
		timeout = fallback
	}
	return util.NewHTTPClient(model.HTTPConfig{
		Timeout:    timeout,
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
		NoProxy:    c.NoProxy,
	})
}
