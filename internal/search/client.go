package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/util"
)

const (
	defaultUserAgent = "Lumify/1.1 (+https://www.lumify.ai)"
	defaultMaxBytes  = 2_000_000

	// maxRetryAfter caps a server-requested Retry-After wait
	maxRetryAfter = time.Minute
)

// ErrEmptyQuery is returned when Search is called with a blank query
var ErrEmptyQuery = errors.New("search: query is empty")

// sleepFunc waits between retries (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Waiter blocks until a request to rawURL is allowed
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// HTTPError is a non-2xx response other than an authentication failure
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Request is the search payload
type Request struct {
	Query            string `json:"query"`
	ApplicationID    string `json:"application_id"`
	AnswerMode       bool   `json:"answer_mode"`
	SimilarQuestions bool   `json:"similar_questions"`
}

// Client talks to the Lumify search API
type Client struct {
	endpoint         string
	apiKey           string
	appID            string
	userAgent        string
	answerMode       bool
	similarQuestions bool
	httpClient       *http.Client
	limiter          Waiter
	maxBytes         int64
	maxRetries       int
	minBackoff       time.Duration
	maxBackoff       time.Duration
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets a custom http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRetry configures the retry policy for 429/5xx and network errors
func WithRetry(maxRetries int, minBackoff, maxBackoff time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if minBackoff > 0 {
			c.minBackoff = minBackoff
		}
		if maxBackoff >= c.minBackoff {
			c.maxBackoff = maxBackoff
		}
	}
}

// WithLimiter rate limits outbound requests
func WithLimiter(l Waiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithAnswerMode toggles synthesized answers
func WithAnswerMode(on bool) Option {
	return func(c *Client) { c.answerMode = on }
}

// WithSimilarQuestions toggles similar question suggestions
func WithSimilarQuestions(on bool) Option {
	return func(c *Client) { c.similarQuestions = on }
}

// WithMaxBodyBytes bounds the response body size
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// NewClient creates a search client for endpoint
func NewClient(endpoint, apiKey, appID string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		appID:      appID,
		userAgent:  defaultUserAgent,
		answerMode: true,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBytes:   defaultMaxBytes,
		maxRetries: 3,
		minBackoff: 250 * time.Millisecond,
		maxBackoff: 4 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewClientFromConfig creates a client from the api, widget and http settings.
// Extra options are applied last.
func NewClientFromConfig(cfg *model.Config, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(util.NewHTTPClient(cfg.HTTP)),
		WithUserAgent(cfg.HTTP.UserAgent),
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		WithRetry(cfg.HTTP.MaxRetries, 0, 0),
		WithAnswerMode(cfg.Widget.AnswerMode),
		WithSimilarQuestions(cfg.Widget.SimilarQuestions),
	}
	return NewClient(cfg.API.Endpoint, cfg.API.APIKey, cfg.API.AppID, append(base, opts...)...)
}

// Endpoint returns the search endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Search runs a query and decodes the response. Authentication failures
// return model.ErrAuthentication.
func (c *Client) Search(ctx context.Context, query string) (*model.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	body, err := json.Marshal(Request{
		Query:            query,
		ApplicationID:    c.appID,
		AnswerMode:       c.answerMode,
		SimilarQuestions: c.similarQuestions,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}

	var resp model.SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// PopularQuestions fetches up to limit popular questions for the application
func (c *Client) PopularQuestions(ctx context.Context, limit int) (*model.PopularQuestionsResponse, error) {
	endpoint, err := url.Parse(PopularEndpoint(c.endpoint))
	if err != nil {
		return nil, fmt.Errorf("parse popular endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("app_id", c.appID)
	q.Set("limit", strconv.Itoa(limit))
	endpoint.RawQuery = q.Encode()

	raw, err := c.do(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}

	var resp model.PopularQuestionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode popular questions: %w", err)
	}
	return &resp, nil
}

// PopularEndpoint derives the popular questions URL from the search endpoint
func PopularEndpoint(searchEndpoint string) string {
	if strings.Contains(searchEndpoint, "/search.php") {
		return strings.Replace(searchEndpoint, "/search.php", "/popular-questions.php", 1)
	}
	base := ""
	if i := strings.LastIndex(searchEndpoint, "/"); i >= 0 {
		base = searchEndpoint[:i]
	}
	return base + "/popular-questions.php"
}

// do sends the request with retries and returns the bounded response body
func (c *Client) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, target); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("User-Agent", c.userAgent)

		res, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < c.maxRetries {
				if werr := sleepFunc(ctx, c.backoff(attempt)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("request: %w", err)
		}

		raw, readErr := io.ReadAll(io.LimitReader(res.Body, c.maxBytes))
		_ = res.Body.Close()

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			if readErr != nil {
				return nil, fmt.Errorf("read body: %w", readErr)
			}
			return raw, nil
		}

		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			return nil, model.ErrAuthentication
		}

		retryable := res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500
		if retryable && attempt < c.maxRetries {
			if werr := sleepFunc(ctx, c.retryDelay(res.Header.Get("Retry-After"), attempt)); werr != nil {
				return nil, werr
			}
			continue
		}

		return nil, &HTTPError{Status: res.StatusCode, Message: errorMessage(raw)}
	}
}

// retryDelay honors a Retry-After header in seconds, up to maxRetryAfter,
// else backs off
func (c *Client) retryDelay(retryAfter string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		if secs > int(maxRetryAfter/time.Second) {
			return maxRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	return c.backoff(attempt)
}

// backoff is exponential with +/-20% jitter, capped at maxBackoff
func (c *Client) backoff(attempt int) time.Duration {
	d := c.minBackoff << attempt
	if d > c.maxBackoff || d <= 0 {
		d = c.maxBackoff
	}
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

// errorMessage extracts the API error text from a failed response body
func errorMessage(raw []byte) string {
	var payload struct {
		Error *model.ResponseError `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == nil {
		return ""
	}
	return payload.Error.Message
}
