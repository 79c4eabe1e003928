package render

import (
	"strings"
	"testing"

	"github.com/ppiankov/lumify/internal/model"
)

func TestDisplayURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"host only", "https://a.test", "a.test/"},
		{"short path", "https://www.a.test/docs", "www.a.test/docs"},
		{"query dropped", "https://a.test/search?q=1#top", "a.test/search"},
		{"port dropped", "https://a.test:8443/x", "a.test/x"},
		{"long path", "https://example.test/a/very/long/path/segment/that/exceeds/thirty/chars", "example.test/a/very/long/path/segment/t..."},
		{"exactly thirty", "https://a.test/" + strings.Repeat("p", 29), "a.test/" + strings.Repeat("p", 29)},
		{"no scheme", "not a url", "not a url"},
		{"long raw", strings.Repeat("x", 45), strings.Repeat("x", 37) + "..."},
		{"raw at limit", strings.Repeat("x", 40), strings.Repeat("x", 40)},
		{"parse error", "http://[::1", "http://[::1"},
		{"opaque", "mailto:someone@a.test", "someone@a.test"},
		{"scheme without host", "http://", "http://"},
		{"https without host", "https:///docs", "https:///docs"},
		{"file without host", "file:///tmp/a.txt", "/tmp/a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayURL(tt.in); got != tt.want {
				t.Errorf("DisplayURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	in := strings.Repeat("é", 41)
	want := strings.Repeat("é", 37) + "..."
	if got := truncate(in, maxDisplayRaw); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := truncate(strings.Repeat("é", 40), maxDisplayRaw); got != strings.Repeat("é", 40) {
		t.Errorf("string at limit should be unchanged, got %q", got)
	}
}

func TestSourceTitle(t *testing.T) {
	tests := []struct {
		name string
		in   model.Source
		want string
	}{
		{"title wins", model.Source{URL: "https://www.a.test", Title: "T", PageTitle: "P"}, "T"},
		{"page title", model.Source{URL: "https://www.a.test", PageTitle: "P"}, "P"},
		{"domain strips www", model.Source{URL: "https://www.a.test/x"}, "a.test"},
		{"domain kept", model.Source{URL: "https://docs.a.test/x"}, "docs.a.test"},
		{"malformed", model.Source{URL: "::not-a-url"}, "Source"},
		{"scheme only", model.Source{URL: "http://"}, "Source"},
		{"empty", model.Source{}, "Source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SourceTitle(tt.in); got != tt.want {
				t.Errorf("SourceTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFaviconURL(t *testing.T) {
	if got := FaviconURL("https://www.a.test/x"); got != "https://www.google.com/s2/favicons?domain=www.a.test&sz=32" {
		t.Errorf("unexpected favicon url %q", got)
	}
	if got := FaviconURL("::not-a-url"); got != "" {
		t.Errorf("expected empty favicon for malformed url, got %q", got)
	}
	if got := FaviconURL("mailto:x@a.test"); got != "" {
		t.Errorf("expected empty favicon for hostless url, got %q", got)
	}

	f := NewFormatter(WithFaviconService("https://icons.test/{domain}.ico"))
	if got := f.FaviconURL("https://a.test"); got != "https://icons.test/a.test.ico" {
		t.Errorf("custom service: got %q", got)
	}
}

func TestChip(t *testing.T) {
	f := NewFormatter()
	out := f.Chip(3, model.Source{URL: "https://www.a.test/docs?x=1&y=2"}, model.NewTab)

	chips, err := Citations(out)
	if err != nil {
		t.Fatalf("parse chip: %v", err)
	}
	if len(chips) != 1 {
		t.Fatalf("expected 1 chip, got %d", len(chips))
	}
	c := chips[0]

	if c.Href != "https://www.a.test/docs?x=1&y=2" {
		t.Errorf("href = %q", c.Href)
	}
	if c.Target != "_blank" || c.Rel != "noopener noreferrer" {
		t.Errorf("expected new-tab attributes, got target=%q rel=%q", c.Target, c.Rel)
	}
	if c.Ordinal != 3 || c.Text != "3" {
		t.Errorf("expected ordinal 3, got %d/%q", c.Ordinal, c.Text)
	}
	if c.Title != "a.test" {
		t.Errorf("title = %q", c.Title)
	}
	if c.DisplayURL != "www.a.test/docs" {
		t.Errorf("display url = %q", c.DisplayURL)
	}
	if c.Favicon != "https://www.google.com/s2/favicons?domain=www.a.test&sz=32" {
		t.Errorf("favicon = %q", c.Favicon)
	}
	if strings.Contains(out, "&amp;amp;") {
		t.Errorf("chip is double-escaped: %q", out)
	}
}

func TestChip_MalformedURL(t *testing.T) {
	out := NewFormatter().Chip(1, model.Source{URL: "::not-a-url"}, model.SameWindow)

	chips, err := Citations(out)
	if err != nil {
		t.Fatalf("parse chip: %v", err)
	}
	if len(chips) != 1 {
		t.Fatalf("expected 1 chip, got %d", len(chips))
	}
	c := chips[0]
	if c.Title != "Source" {
		t.Errorf("expected fallback title, got %q", c.Title)
	}
	if c.DisplayURL != "::not-a-url" {
		t.Errorf("expected raw display url, got %q", c.DisplayURL)
	}
	if c.Favicon != "" {
		t.Errorf("expected empty favicon, got %q", c.Favicon)
	}
	if c.Rel != "" || c.Target != "_self" {
		t.Errorf("expected same-window attributes, got target=%q rel=%q", c.Target, c.Rel)
	}
}

func TestChip_EscapesTitle(t *testing.T) {
	out := NewFormatter().Chip(1, model.Source{URL: "https://a.test", Title: `<img src=x onerror="alert(1)">`}, model.SameWindow)

	if strings.Contains(out, "<img src=x") {
		t.Fatalf("title not escaped: %q", out)
	}
	chips, err := Citations(out)
	if err != nil || len(chips) != 1 {
		t.Fatalf("parse chip: %v (%d chips)", err, len(chips))
	}
	if chips[0].Title != `<img src=x onerror="alert(1)">` {
		t.Errorf("title should round-trip as text, got %q", chips[0].Title)
	}
}
