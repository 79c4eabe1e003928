package popular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/lumify/internal/cache"
	"github.com/ppiankov/lumify/internal/model"
)

// Fetcher retrieves popular questions from the search API
type Fetcher interface {
	PopularQuestions(ctx context.Context, limit int) (*model.PopularQuestionsResponse, error)
}

// Origin reports where a result's questions came from
type Origin string

const (
	OriginCache    Origin = "cache"
	OriginAPI      Origin = "api"
	OriginFallback Origin = "fallback"
)

// ErrNoQuestions is the warning attached when the API returned nothing usable
var ErrNoQuestions = errors.New("popular questions: API returned no questions")

// Result is the outcome of a load. Warning is set when the API could not be
// used and the fallback list was returned instead.
type Result struct {
	Questions []string `json:"questions"`
	Origin    Origin   `json:"origin"`
	Warning   error    `json:"-"`
}

// cached is the stored form of a question list
type cached struct {
	Questions []string `json:"questions"`
	Timestamp int64    `json:"timestamp"`
}

// Service loads popular questions through cache, API and fallback in order
type Service struct {
	fetcher    Fetcher
	cache      cache.Cache
	key        string
	maxDisplay int
	ttl        time.Duration
	fallback   []string
}

// NewService creates a Service for one application. A nil cache disables
// caching.
func NewService(fetcher Fetcher, c cache.Cache, appID string, cfg model.PopularQuestionsConfig) *Service {
	if c == nil {
		c = cache.NopCache{}
	}
	return &Service{
		fetcher:    fetcher,
		cache:      c,
		key:        cache.PopularKey(appID),
		maxDisplay: cfg.MaxDisplay,
		ttl:        cfg.CacheTTL,
		fallback:   clean(cfg.Fallback, cfg.MaxDisplay),
	}
}

// Load returns cached questions when fresh, else fetches and caches them.
// A failed fetch yields the fallback list with the error as a warning.
func (s *Service) Load(ctx context.Context) Result {
	if questions, ok := s.fromCache(); ok {
		return Result{Questions: questions, Origin: OriginCache}
	}
	return s.Refresh(ctx)
}

// Refresh bypasses the cache read and fetches from the API
func (s *Service) Refresh(ctx context.Context) Result {
	resp, err := s.fetcher.PopularQuestions(ctx, s.maxDisplay)
	if err != nil {
		return Result{Questions: s.fallback, Origin: OriginFallback, Warning: fmt.Errorf("fetch popular questions: %w", err)}
	}

	questions := clean(resp.Questions, s.maxDisplay)
	if !resp.Success || len(questions) == 0 {
		return Result{Questions: s.fallback, Origin: OriginFallback, Warning: ErrNoQuestions}
	}

	ttl := s.ttl
	if resp.CacheHint > 0 {
		ttl = time.Duration(resp.CacheHint) * time.Second
	}

	result := Result{Questions: questions, Origin: OriginAPI}
	if err := s.store(questions, ttl); err != nil {
		result.Warning = fmt.Errorf("cache popular questions: %w", err)
	}
	return result
}

// Invalidate drops the cached list
func (s *Service) Invalidate() error {
	return s.cache.Delete(s.key)
}

func (s *Service) fromCache() ([]string, bool) {
	raw, ok := s.cache.Get(s.key)
	if !ok {
		return nil, false
	}
	var entry cached
	if err := json.Unmarshal(raw, &entry); err != nil || len(entry.Questions) == 0 {
		_ = s.cache.Delete(s.key)
		return nil, false
	}
	return clean(entry.Questions, s.maxDisplay), true
}

func (s *Service) store(questions []string, ttl time.Duration) error {
	raw, err := json.Marshal(cached{Questions: questions, Timestamp: time.Now().Unix()})
	if err != nil {
		return err
	}
	return s.cache.Set(s.key, raw, ttl)
}

// clean trims entries, drops blanks and caps the list at limit (0 = no cap)
func clean(questions []string, limit int) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
