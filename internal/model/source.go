package model

import (
	"encoding/json"
	"strings"
)

// Source is a reference cited by an answer. Sources are identified by
// position: ordinal n refers to the source at index n-1.
type Source struct {
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`               // Target of the citation link
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`           // Preferred display title
	PageTitle string `json:"page_title,omitempty" yaml:"page_title,omitempty"` // Title scraped from the page itself
}

// HasTitle reports whether the source carries any usable title
func (s Source) HasTitle() bool {
	return s.Title != "" || s.PageTitle != ""
}

// LinkTarget decides whether rendered links open in the same browsing
// context or a new one
type LinkTarget string

const (
	SameWindow LinkTarget = "same-window"
	NewTab     LinkTarget = "new-tab"
)

// ParseLinkTarget accepts both the descriptive form (same-window, new-tab)
// and the HTML attribute form (_self, _blank). ok is false for anything else.
func ParseLinkTarget(s string) (LinkTarget, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "same-window", "_self", "self":
		return SameWindow, true
	case "new-tab", "_blank", "blank":
		return NewTab, true
	default:
		return "", false
	}
}

// ResolveLinkTarget walks candidates in precedence order and returns the
// first one that parses. Nothing parseable means SameWindow.
func ResolveLinkTarget(candidates ...string) LinkTarget {
	for _, c := range candidates {
		if t, ok := ParseLinkTarget(c); ok {
			return t
		}
	}
	return SameWindow
}

// Attr returns the value for an anchor's target attribute
func (t LinkTarget) Attr() string {
	if t == NewTab {
		return "_blank"
	}
	return "_self"
}

// IsNewTab reports whether links should open a new browsing context
func (t LinkTarget) IsNewTab() bool {
	return t == NewTab
}

func (t LinkTarget) String() string {
	if t == "" {
		return string(SameWindow)
	}
	return string(t)
}

// UnmarshalJSON accepts either spelling; unknown values decode to "" so the
// next precedence level wins.
func (t *LinkTarget) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, _ := ParseLinkTarget(raw)
	*t = parsed
	return nil
}
