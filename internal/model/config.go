package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete lumify configuration
type Config struct {
	Widget           WidgetConfig           `yaml:"widget" mapstructure:"widget"`
	API              APIConfig              `yaml:"api" mapstructure:"api"`
	PopularQuestions PopularQuestionsConfig `yaml:"popular_questions" mapstructure:"popular_questions"`
	Cache            CacheConfig            `yaml:"cache" mapstructure:"cache"`
	HTTP             HTTPConfig             `yaml:"http" mapstructure:"http"`
	RateLimiting     RateLimitConfig        `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency      ConcurrencyConfig      `yaml:"concurrency" mapstructure:"concurrency"`
	Render           RenderConfig           `yaml:"render" mapstructure:"render"`
	Tooltip          TooltipConfig          `yaml:"tooltip" mapstructure:"tooltip"`
	Enrich           EnrichConfig           `yaml:"enrich" mapstructure:"enrich"`
	LLM              LLMConfig              `yaml:"llm" mapstructure:"llm"`
	Server           ServerConfig           `yaml:"server" mapstructure:"server"`
	Output           OutputConfig           `yaml:"output" mapstructure:"output"`
}

// WidgetConfig mirrors the declarative attributes of the embedded widget
type WidgetConfig struct {
	Mode             string `yaml:"mode" mapstructure:"mode"`         // floating, inline, trigger
	Position         string `yaml:"position" mapstructure:"position"` // bottom-right, bottom-left, top-right, top-left
	Theme            string `yaml:"theme" mapstructure:"theme"`       // light, dark, auto
	AccentColor      string `yaml:"accent_color" mapstructure:"accent_color"`
	ButtonText       string `yaml:"button_text" mapstructure:"button_text"`
	ButtonIcon       string `yaml:"button_icon" mapstructure:"button_icon"` // search, chat, help, none
	Placeholder      string `yaml:"placeholder" mapstructure:"placeholder"`
	KeyboardShortcut bool   `yaml:"keyboard_shortcut" mapstructure:"keyboard_shortcut"`
	ShowBranding     bool   `yaml:"show_branding" mapstructure:"show_branding"`
	ZIndex           int    `yaml:"z_index" mapstructure:"z_index"`
	EmptyText        string `yaml:"empty_text" mapstructure:"empty_text"`
	ModalTitle       string `yaml:"modal_title" mapstructure:"modal_title"`
	CTATarget        string `yaml:"cta_target" mapstructure:"cta_target"` // Widget-level link target
	AnswerMode       bool   `yaml:"answer_mode" mapstructure:"answer_mode"`
	SimilarQuestions bool   `yaml:"similar_questions" mapstructure:"similar_questions"`
}

// APIConfig holds search API credentials
type APIConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	AppID    string `yaml:"app_id,omitempty" mapstructure:"app_id"`
}

// PopularQuestionsConfig controls the popular questions list
type PopularQuestionsConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxDisplay    int           `yaml:"max_display" mapstructure:"max_display"`
	CacheStrategy string        `yaml:"cache_strategy" mapstructure:"cache_strategy"` // disk, memory, layered, none
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	Fallback      []string      `yaml:"fallback" mapstructure:"fallback"`
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Dir             string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL       time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig holds per-host rate limiting settings
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig holds worker counts
type ConcurrencyConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers"`
	EnrichWorkers int `yaml:"enrich_workers" mapstructure:"enrich_workers"`
}

// RenderConfig holds answer formatting settings
type RenderConfig struct {
	FaviconService string `yaml:"favicon_service" mapstructure:"favicon_service"` // {domain} is replaced by the source hostname
}

// TooltipConfig holds the tooltip placement allowances in pixels
type TooltipConfig struct {
	Padding       float64 `yaml:"padding" mapstructure:"padding"`
	FooterReserve float64 `yaml:"footer_reserve" mapstructure:"footer_reserve"`
	Gap           float64 `yaml:"gap" mapstructure:"gap"`
}

// EnrichConfig controls source title enrichment
type EnrichConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// LLMConfig holds local answer synthesis settings
type LLMConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model           string `yaml:"model" mapstructure:"model"`
	APIKey          string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL         string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout         int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictCitations bool   `yaml:"strict_citations" mapstructure:"strict_citations"`
	MaxTokens       int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig holds the render service settings
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig holds output settings
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the widget defaults
func DefaultConfig() *Config {
	return &Config{
		Widget: WidgetConfig{
			Mode:             "floating",
			Position:         "bottom-right",
			Theme:            "auto",
			AccentColor:      "#6366f1",
			ButtonIcon:       "search",
			Placeholder:      "Ask anything...",
			KeyboardShortcut: true,
			ShowBranding:     true,
			ZIndex:           9999,
			EmptyText:        "Ask a question to get started",
			ModalTitle:       "Search",
			CTATarget:        "_self",
			AnswerMode:       true,
		},
		API: APIConfig{
			Endpoint: "https://www.lumify.ai/api/v1/search.php",
		},
		PopularQuestions: PopularQuestionsConfig{
			MaxDisplay:    5,
			CacheStrategy: "disk",
			CacheTTL:      24 * time.Hour,
		},
		Cache: CacheConfig{
			Dir:             defaultCacheDir(),
			MemoryTTL:       time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Lumify/1.1 (+https://www.lumify.ai)",
			MaxBodyBytes: 2_000_000,
			MaxRetries:   3,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers:       4,
			EnrichWorkers: 8,
		},
		Render: RenderConfig{
			FaviconService: "https://www.google.com/s2/favicons?domain={domain}&sz=32",
		},
		Tooltip: TooltipConfig{
			Padding:       12,
			FooterReserve: 60,
			Gap:           8,
		},
		Enrich: EnrichConfig{
			RespectRobots: true,
		},
		LLM: LLMConfig{
			Timeout:         30,
			StrictCitations: true,
			MaxTokens:       1000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// defaultCacheDir places the disk cache under ~/.lumify/cache, or the working
// directory when no home directory is available
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".lumify", "cache")
	}
	return filepath.Join(home, ".lumify", "cache")
}

// Validate checks enumerated and numeric settings
func (c *Config) Validate() error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"widget.mode", c.Widget.Mode, []string{"floating", "inline", "trigger"}},
		{"widget.position", c.Widget.Position, []string{"bottom-right", "bottom-left", "top-right", "top-left"}},
		{"widget.theme", c.Widget.Theme, []string{"light", "dark", "auto"}},
		{"widget.button_icon", c.Widget.ButtonIcon, []string{"search", "chat", "help", "none"}},
		{"popular_questions.cache_strategy", c.PopularQuestions.CacheStrategy,
			[]string{"disk", "localStorage", "memory", "sessionStorage", "layered", "none"}},
	}
	for _, chk := range checks {
		if !oneOf(chk.value, chk.allowed) {
			return fmt.Errorf("invalid %s %q (allowed: %s)", chk.field, chk.value, strings.Join(chk.allowed, ", "))
		}
	}

	if c.Widget.CTATarget != "" {
		if _, ok := ParseLinkTarget(c.Widget.CTATarget); !ok {
			return fmt.Errorf("invalid widget.cta_target %q (allowed: _self, _blank, same-window, new-tab)", c.Widget.CTATarget)
		}
	}
	if c.PopularQuestions.MaxDisplay < 0 {
		return fmt.Errorf("popular_questions.max_display must be >= 0, got %d", c.PopularQuestions.MaxDisplay)
	}
	if c.Tooltip.Padding < 0 || c.Tooltip.FooterReserve < 0 || c.Tooltip.Gap < 0 {
		return fmt.Errorf("tooltip allowances must be non-negative")
	}
	if c.RateLimiting.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limiting.requests_per_second must be >= 0")
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
