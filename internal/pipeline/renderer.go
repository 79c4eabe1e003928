package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/lumify/internal/llm"
)

// Renderer writes rendered results to files
type Renderer struct {
	verbose bool
	out     io.Writer
}

// NewRenderer creates a Renderer that reports written files to out when
// verbose
func NewRenderer(out io.Writer, verbose bool) *Renderer {
	if out == nil {
		out = os.Stderr
	}
	return &Renderer{verbose: verbose, out: out}
}

// RenderHTML writes the results fragment wrapped in the results container
func (r *Renderer) RenderHTML(result *Result, path string) error {
	doc := `<div class="lumify-widget-results">` + result.HTML + "</div>\n"
	return r.write(path, []byte(doc))
}

// RenderJSON writes v as indented JSON
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return r.write(path, append(data, '\n'))
}

// RenderMarkdown writes a synthesized answer as Markdown
func (r *Renderer) RenderMarkdown(result *Result, path string) error {
	if result.Response == nil {
		return fmt.Errorf("no response to render")
	}
	return r.write(path, []byte(llm.RenderMarkdown(result.Query, result.Response, result.Synthesis)))
}

// RenderResult writes the HTML and JSON outputs for a result. Empty paths
// are skipped.
func (r *Renderer) RenderResult(result *Result, htmlPath, jsonPath, mdPath string) error {
	if htmlPath != "" {
		if err := r.RenderHTML(result, htmlPath); err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
	}
	if jsonPath != "" {
		if err := r.RenderJSON(result, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if mdPath != "" && result.Response != nil {
		if err := r.RenderMarkdown(result, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
	}
	return nil
}

// RenderSummary prints a short summary of a result
func (r *Renderer) RenderSummary(w io.Writer, result *Result) {
	status := "✓"
	if result.Error != "" {
		status = "✗"
	}
	fmt.Fprintf(w, "%s %s (%d citations, %dms)\n", status, result.Query, len(result.Citations), result.DurationMS)
	if result.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", result.Error)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

func (r *Renderer) write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	if r.verbose {
		fmt.Fprintf(r.out, "✓ Wrote %s\n", path)
	}
	return nil
}

// Slug turns a query into a safe file name of at most 80 bytes
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 80 {
		slug = strings.TrimSuffix(truncateUTF8(slug, 80), "-")
	}
	if slug == "" {
		return "query"
	}
	return slug
}

func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
