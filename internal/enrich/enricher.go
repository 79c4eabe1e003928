package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ppiankov/lumify/internal/cache"
	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/util"
	"github.com/ppiankov/lumify/internal/worker"
)

var (
	// ErrDisallowed is returned when robots.txt forbids fetching a source
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrNoTitle is returned when a page has no usable title
	ErrNoTitle = errors.New("no title found")
)

const defaultTitleTTL = 24 * time.Hour

// Enricher fills in page titles for sources that arrive without one
type Enricher struct {
	fetcher  *Fetcher
	robots   *util.RobotsChecker
	limiter  *worker.Limiter
	cache    cache.Cache
	titleTTL time.Duration
	workers  int
}

// Option configures an Enricher
type Option func(*Enricher)

// WithRobots checks robots.txt before each fetch and honors crawl delays
func WithRobots(rc *util.RobotsChecker) Option {
	return func(e *Enricher) { e.robots = rc }
}

// WithLimiter rate limits fetches per host
func WithLimiter(l *worker.Limiter) Option {
	return func(e *Enricher) { e.limiter = l }
}

// WithCache remembers resolved titles for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Enricher) {
		if c != nil {
			e.cache = c
		}
		if ttl > 0 {
			e.titleTTL = ttl
		}
	}
}

// WithWorkers sets how many sources are fetched concurrently
func WithWorkers(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEnricher creates an Enricher around fetcher
func NewEnricher(fetcher *Fetcher, opts ...Option) *Enricher {
	e := &Enricher{
		fetcher:  fetcher,
		cache:    cache.NopCache{},
		titleTTL: defaultTitleTTL,
		workers:  4,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NewEnricherFromConfig wires the shared HTTP client, robots checker and
// per-host limiter from cfg. c may be nil.
func NewEnricherFromConfig(cfg *model.Config, c cache.Cache) *Enricher {
	client := util.NewHTTPClient(cfg.HTTP)
	opts := []Option{
		WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
		WithWorkers(cfg.Concurrency.EnrichWorkers),
		WithCache(c, cfg.Cache.MemoryTTL),
	}
	if cfg.Enrich.RespectRobots {
		opts = append(opts, WithRobots(util.NewRobotsChecker(client, cfg.HTTP.UserAgent, util.DefaultRobotsTTL)))
	}
	return NewEnricher(NewFetcher(client, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes), opts...)
}

// Enrich returns a copy of sources where every source lacking both title
// and page title has PageTitle set from the fetched page. Sources that fail
// are left untouched; their errors are joined into the returned error.
func (e *Enricher) Enrich(ctx context.Context, sources []model.Source) ([]model.Source, error) {
	out := make([]model.Source, len(sources))
	copy(out, sources)

	var pending []int
	for i, s := range out {
		if !s.HasTitle() && s.URL != "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	workers := e.workers
	if workers > len(pending) {
		workers = len(pending)
	}
	pool := worker.NewPoolWithContext(ctx, workers)
	pool.Start()

	for _, i := range pending {
		pool.Submit(worker.FuncJob(func(ctx context.Context) error {
			title, err := e.Title(ctx, out[i].URL)
			if err != nil {
				return fmt.Errorf("source %d (%s): %w", i+1, out[i].URL, err)
			}
			out[i].PageTitle = title
			return nil
		}))
	}

	var errs []error
	for _, r := range pool.Wait() {
		if r == nil {
			continue
		}
		if err := r.GetError(); err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

// Title resolves the title of a single page
func (e *Enricher) Title(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	key := cache.Key("title", rawURL)
	if v, ok := e.cache.Get(key); ok {
		return string(v), nil
	}

	var crawlDelay time.Duration
	if e.robots != nil {
		allowed, delay, err := e.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return "", fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return "", ErrDisallowed
		}
		crawlDelay = delay
	}

	if e.limiter != nil {
		if err := e.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	result, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	title := ExtractTitle(result.HTML)
	if title == "" {
		return "", ErrNoTitle
	}

	_ = e.cache.Set(key, []byte(title), e.titleTTL)
	return title, nil
}
