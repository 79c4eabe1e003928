package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes bounds provider response bodies
const maxResponseBytes = 4 << 20

// jsonAPI is a JSON-over-HTTP endpoint shared by the providers that have no
// Go SDK
type jsonAPI struct {
	client  *http.Client
	baseURL string
	header  http.Header

	// errorText extracts the provider's error message from a non-200 body,
	// returning "" when the body has none
	errorText func(body []byte) string
}

// post sends in as JSON to path and decodes a 200 response into out
func (a *jsonAPI) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := a.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// ping GETs path and reports any non-200 answer as an error
func (a *jsonAPI) ping(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	_, err = a.do(req)
	return err
}

func (a *jsonAPI) do(req *http.Request) ([]byte, error) {
	for k, v := range a.header {
		req.Header[k] = v
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if a.errorText != nil {
			if msg := a.errorText(data); msg != "" {
				return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}
