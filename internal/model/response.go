package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAuthentication is returned when the search API rejects the credentials
var ErrAuthentication = errors.New("AUTH_ERROR")

// SearchResponse is the payload returned by the search API
type SearchResponse struct {
	Success         bool           `json:"success"`
	DirectAnswer    *DirectAnswer  `json:"direct_answer,omitempty"`
	ConfidenceScore float64        `json:"confidence_score,omitempty"`
	NoResults       *NoResults     `json:"no_results,omitempty"`
	Error           *ResponseError `json:"error,omitempty"`
	Metadata        *Metadata      `json:"metadata,omitempty"`
}

// DirectAnswer is the synthesized answer with its citations
type DirectAnswer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources,omitempty"`
	CTA     *CTA     `json:"cta,omitempty"`
}

// CTA is a structural call-to-action link appended after an answer
type CTA struct {
	Text   string `json:"text"`
	URL    string `json:"url"`
	Type   string `json:"type,omitempty"`   // login, password_reset, order_tracking, ...
	Title  string `json:"title,omitempty"`  // Hover title, defaults to Text
	Target string `json:"target,omitempty"` // Per-CTA link target override
}

// NoResults carries the message shown when no answer was found
type NoResults struct {
	Message string `json:"message,omitempty"`
}

// Metadata carries response-level rendering hints
type Metadata struct {
	LinkTarget LinkTarget `json:"link_target,omitempty"`
}

// ResponseError is the API error field, which arrives either as a bare
// string or as an object with a message.
type ResponseError struct {
	Message string `json:"message,omitempty"`
}

func (e *ResponseError) Error() string {
	return e.Message
}

// UnmarshalJSON decodes both "error": "text" and "error": {"message": "text"}
func (e *ResponseError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &e.Message)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode error field: %w", err)
	}
	e.Message = obj.Message
	return nil
}

// Answer returns the answer text, or "" when there is none
func (r *SearchResponse) Answer() string {
	if r == nil || r.DirectAnswer == nil {
		return ""
	}
	return r.DirectAnswer.Answer
}

// ErrorMessage returns the API error message with the widget's default
func (r *SearchResponse) ErrorMessage() string {
	if r != nil && r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return "Search failed"
}

// MetadataLinkTarget returns the response-level link target or ""
func (r *SearchResponse) MetadataLinkTarget() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	return string(r.Metadata.LinkTarget)
}

// PopularQuestionsResponse is the payload of the popular questions endpoint
type PopularQuestionsResponse struct {
	Success   bool     `json:"success"`
	Questions []string `json:"questions,omitempty"`
	CacheHint int      `json:"cache_hint,omitempty"` // Seconds; overrides the configured TTL
}
