package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/lumify/internal/cache"
	"github.com/ppiankov/lumify/internal/enrich"
	"github.com/ppiankov/lumify/internal/llm"
	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/popular"
	"github.com/ppiankov/lumify/internal/render"
	"github.com/ppiankov/lumify/internal/search"
	"github.com/ppiankov/lumify/internal/worker"
)

// ErrPopularDisabled is returned when popular questions are turned off
var ErrPopularDisabled = errors.New("popular questions are disabled")

// Pipeline orchestrates search, enrichment and rendering
type Pipeline struct {
	client      *search.Client
	enricher    *enrich.Enricher // nil when enrichment is off
	synthesizer *llm.Synthesizer
	formatter   *render.Formatter
	popular     *popular.Service // nil when popular questions are off
	config      *model.Config
	log         io.Writer
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSynthesizer replaces the synthesizer built from the llm settings
func WithSynthesizer(s *llm.Synthesizer) Option {
	return func(p *Pipeline) { p.synthesizer = s }
}

// WithLog sets where progress and warnings are written
func WithLog(w io.Writer) Option {
	return func(p *Pipeline) { p.log = w }
}

// NewPipeline wires every component from cfg. A broken cache or LLM setup
// degrades to no cache or no synthesis with a warning.
func NewPipeline(cfg *model.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		formatter: render.NewFormatterFromConfig(cfg),
		config:    cfg,
		log:       os.Stderr,
	}
	for _, o := range opts {
		o(p)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	p.client = search.NewClientFromConfig(cfg, search.WithLimiter(limiter))

	c, err := cache.New(cfg.PopularQuestions.CacheStrategy, cfg.Cache, cfg.PopularQuestions.CacheTTL)
	if err != nil {
		p.warnf("cache disabled: %v", err)
		c = cache.NopCache{}
	}

	if cfg.Enrich.Enabled {
		p.enricher = enrich.NewEnricherFromConfig(cfg, c)
	}

	if cfg.PopularQuestions.Enabled {
		p.popular = popular.NewService(p.client, c, cfg.API.AppID, cfg.PopularQuestions)
	}

	if p.synthesizer == nil {
		s, err := llm.NewSynthesizer(llm.ConfigFromModel(cfg))
		if err != nil {
			p.warnf("failed to initialize LLM provider: %v", err)
			s = &llm.Synthesizer{}
		}
		p.synthesizer = s
	}

	return p
}

// Formatter returns the formatter used for rendering
func (p *Pipeline) Formatter() *render.Formatter {
	return p.formatter
}

// Synthesizer returns the local answer synthesizer
func (p *Pipeline) Synthesizer() *llm.Synthesizer {
	return p.synthesizer
}

// Result is one rendered query
type Result struct {
	Query      string                `json:"query"`
	Response   *model.SearchResponse `json:"response,omitempty"`
	HTML       string                `json:"html"`
	Citations  []render.Anchor       `json:"citations,omitempty"`
	Warnings   []string              `json:"warnings,omitempty"`
	Error      string                `json:"error,omitempty"`
	DurationMS int64                 `json:"duration_ms"`

	// Synthesis is set for locally synthesized answers
	Synthesis *llm.AnswerResponse `json:"-"`
}

// Search queries the remote API and enriches the answer's sources. It
// satisfies worker.Searcher.
func (p *Pipeline) Search(ctx context.Context, query string) (*model.SearchResponse, error) {
	resp, err := p.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, w := range p.enrichResponse(ctx, resp) {
		p.warnf("%s", w)
	}
	return resp, nil
}

// Run searches and renders. Failures render as an error block and are
// recorded on the result rather than returned.
func (p *Pipeline) Run(ctx context.Context, query string) *Result {
	start := time.Now()
	p.logf("Searching: %s\n", query)

	resp, err := p.client.Search(ctx, query)
	if err != nil {
		return p.failed(query, err, start)
	}

	warnings := p.enrichResponse(ctx, resp)
	result := p.render(query, resp, start)
	result.Warnings = append(result.Warnings, warnings...)
	return result
}

// Render renders an existing response, enriching its sources first
func (p *Pipeline) Render(ctx context.Context, query string, resp *model.SearchResponse) *Result {
	start := time.Now()
	warnings := p.enrichResponse(ctx, resp)
	result := p.render(query, resp, start)
	result.Warnings = append(result.Warnings, warnings...)
	return result
}

// RenderResult renders a batch result
func (p *Pipeline) RenderResult(r *worker.QueryResult) *Result {
	if r.Error != nil {
		result := p.failed(r.Query, r.Error, time.Now())
		result.DurationMS = r.Duration.Milliseconds()
		return result
	}
	result := p.render(r.Query, r.Response, time.Now())
	result.DurationMS = r.Duration.Milliseconds()
	return result
}

// Answer synthesizes an answer locally from sources and renders it
func (p *Pipeline) Answer(ctx context.Context, query string, sources []model.Source) *Result {
	start := time.Now()
	p.logf("Synthesizing with %s: %s\n", p.synthesizer.ProviderName(), query)

	var warnings []string
	if p.enricher != nil && len(sources) > 0 {
		enriched, err := p.enricher.Enrich(ctx, sources)
		sources = enriched
		warnings = splitWarnings(err)
	}

	resp, meta, err := p.synthesizer.Synthesize(ctx, query, sources)
	if err != nil {
		result := p.failed(query, err, start)
		result.Warnings = warnings
		return result
	}

	result := p.render(query, resp, start)
	result.Synthesis = meta
	result.Warnings = append(result.Warnings, warnings...)
	return result
}

// PopularResult is the rendered popular questions list
type PopularResult struct {
	Questions []string `json:"questions"`
	Origin    string   `json:"origin"`
	HTML      string   `json:"html"`
	Warning   string   `json:"warning,omitempty"`
}

// Popular loads popular questions, from cache when fresh
func (p *Pipeline) Popular(ctx context.Context, refresh bool) (*PopularResult, error) {
	if p.popular == nil {
		return nil, ErrPopularDisabled
	}

	var r popular.Result
	if refresh {
		r = p.popular.Refresh(ctx)
	} else {
		r = p.popular.Load(ctx)
	}

	out := &PopularResult{
		Questions: r.Questions,
		Origin:    string(r.Origin),
		HTML:      p.formatter.Popular(r.Questions),
	}
	if r.Warning != nil {
		out.Warning = r.Warning.Error()
		p.warnf("popular questions: %v", r.Warning)
	}
	return out, nil
}

func (p *Pipeline) render(query string, resp *model.SearchResponse, start time.Time) *Result {
	html := p.formatter.Results(resp)
	result := &Result{
		Query:      query,
		Response:   resp,
		HTML:       html,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if resp == nil || !resp.Success {
		result.Error = resp.ErrorMessage()
	}

	citations, err := render.Citations(html)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("inspect citations: %v", err))
	}
	result.Citations = citations

	p.logf("Rendered %d citations for %q\n", len(citations), query)
	return result
}

func (p *Pipeline) failed(query string, err error, start time.Time) *Result {
	p.warnf("%s: %v", query, err)
	return &Result{
		Query:      query,
		HTML:       p.formatter.Error(err),
		Error:      err.Error(),
		DurationMS: time.Since(start).Milliseconds(),
	}
}

// enrichResponse fills missing source titles in place and returns warnings
func (p *Pipeline) enrichResponse(ctx context.Context, resp *model.SearchResponse) []string {
	if p.enricher == nil || resp == nil || resp.DirectAnswer == nil || len(resp.DirectAnswer.Sources) == 0 {
		return nil
	}
	sources, err := p.enricher.Enrich(ctx, resp.DirectAnswer.Sources)
	resp.DirectAnswer.Sources = sources
	return splitWarnings(err)
}

func splitWarnings(err error) []string {
	if err == nil {
		return nil
	}
	return strings.Split(err.Error(), "\n")
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.config.Output.Verbose {
		fmt.Fprintf(p.log, format, args...)
	}
}

func (p *Pipeline) warnf(format string, args ...any) {
	fmt.Fprintf(p.log, "Warning: "+format+"\n", args...)
}
