package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/lumify/internal/model"
)

// Searcher answers a single query
type Searcher interface {
	Search(ctx context.Context, query string) (*model.SearchResponse, error)
}

// QueryJob runs one query through a Searcher
type QueryJob struct {
	Query    string
	Searcher Searcher
}

// Execute executes the query job
func (j *QueryJob) Execute(ctx context.Context) Result {
	start := time.Now()
	resp, err := j.Searcher.Search(ctx, j.Query)
	return &QueryResult{
		Query:    j.Query,
		Response: resp,
		Error:    err,
		Duration: time.Since(start),
	}
}

// QueryResult is the outcome of one query
type QueryResult struct {
	Query    string
	Response *model.SearchResponse
	Error    error
	Duration time.Duration
}

// GetError returns the error from the query result
func (r *QueryResult) GetError() error {
	return r.Error
}

// BatchProcessor runs many queries concurrently
type BatchProcessor struct {
	searcher    Searcher
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(searcher Searcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		searcher:    searcher,
		concurrency: concurrency,
	}
}

// ProcessQueries runs the queries and returns results in input order.
// Queries skipped by cancellation carry the context error.
func (b *BatchProcessor) ProcessQueries(ctx context.Context, queries []string) []*QueryResult {
	if len(queries) == 0 {
		return []*QueryResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, q := range queries {
		if !pool.Submit(&QueryJob{Query: q, Searcher: b.searcher}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*QueryResult, len(queries))
	for i, q := range queries {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*QueryResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &QueryResult{Query: q, Error: err}
	}

	return out
}

// ProcessFile reads queries from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*QueryResult, error) {
	queries, err := ReadLines(filePath)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	return b.ProcessQueries(ctx, queries), nil
}

// ReadLines reads one entry per line, skipping blanks and # comments and
// dropping duplicates
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
