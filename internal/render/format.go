package render

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/lumify/internal/model"
)

var (
	// markdownLinkRe matches [label](url); label has no "]" and url has no ")".
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

	// citationRe matches [n] with ASCII digits only.
	citationRe = regexp.MustCompile(`\[(\d+)\]`)
)

// Placeholder tokens are built from private-use runes, which HTML escaping
// leaves untouched and ordinary prose never contains.
const (
	placeholderOpen  = "\uE000lumify-link:"
	placeholderClose = "\uE001"
)

// Formatter turns raw answer text into safe HTML with citation chips.
// A Formatter holds only immutable settings and is safe for concurrent use.
type Formatter struct {
	faviconService string
	defaultTarget  model.LinkTarget
}

// Option configures a Formatter
type Option func(*Formatter)

// WithFaviconService sets the favicon URL template; {domain} is replaced by
// the source hostname.
func WithFaviconService(tmpl string) Option {
	return func(f *Formatter) {
		if tmpl != "" {
			f.faviconService = tmpl
		}
	}
}

// WithDefaultTarget sets the widget-level link target used when neither the
// CTA nor the response metadata specify one.
func WithDefaultTarget(t model.LinkTarget) Option {
	return func(f *Formatter) { f.defaultTarget = t }
}

// NewFormatter creates a Formatter with the given options
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{
		faviconService: DefaultFaviconService,
		defaultTarget:  model.SameWindow,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFormatterFromConfig builds a Formatter from render and widget settings
func NewFormatterFromConfig(cfg *model.Config) *Formatter {
	return NewFormatter(
		WithFaviconService(cfg.Render.FaviconService),
		WithDefaultTarget(model.ResolveLinkTarget(cfg.Widget.CTATarget)),
	)
}

var defaultFormatter = NewFormatter()

// FormatAnswer formats text with the default Formatter
func FormatAnswer(text string, sources []model.Source, target model.LinkTarget) string {
	return defaultFormatter.Format(text, sources, target)
}

// EscapeHTML escapes &, <, >, " and ' for safe insertion into text and
// attribute values.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Format converts an answer to HTML in four ordered passes: markdown links
// are swapped for placeholders, the remainder is escaped and newlines become
// <br>, placeholders are restored to anchors in order, and finally [n]
// markers outside those anchors become citation chips. The output is not
// meant to be fed back through Format.
func (f *Formatter) Format(text string, sources []model.Source, target model.LinkTarget) string {
	if text == "" {
		return ""
	}

	marker := placeholderMarker(text)
	protected, links := f.protectLinks(text, marker, target)

	escaped := strings.ReplaceAll(EscapeHTML(protected), "\n", "<br>")

	restored, anchors := restoreLinks(escaped, marker, links)

	if len(sources) == 0 {
		return restored
	}
	return f.resolveCitations(restored, anchors, sources, target)
}

// placeholderMarker returns a token prefix that does not occur in text
func placeholderMarker(text string) string {
	marker := placeholderOpen
	for strings.Contains(text, marker) {
		marker += "~"
	}
	return marker
}

func placeholderToken(marker string, index int) string {
	return marker + strconv.Itoa(index) + placeholderClose
}

// protectLinks replaces every markdown link with a placeholder and returns
// the finished anchors in order of appearance.
func (f *Formatter) protectLinks(text, marker string, target model.LinkTarget) (string, []string) {
	matches := markdownLinkRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	links := make([]string, 0, len(matches))
	last := 0
	for _, m := range matches {
		label := text[m[2]:m[3]]
		href := text[m[4]:m[5]]

		b.WriteString(text[last:m[0]])
		b.WriteString(placeholderToken(marker, len(links)))
		links = append(links, anchor(href, label, target))
		last = m[1]
	}
	b.WriteString(text[last:])

	return b.String(), links
}

// span is a half-open byte range of restored anchor markup
type span struct {
	start, end int
}

// restoreLinks substitutes placeholders back in positional order and
// records where each anchor landed.
func restoreLinks(escaped, marker string, links []string) (string, []span) {
	if len(links) == 0 {
		return escaped, nil
	}

	var b strings.Builder
	spans := make([]span, 0, len(links))
	rest := escaped
	for i, link := range links {
		token := placeholderToken(marker, i)
		at := strings.Index(rest, token)
		if at < 0 {
			continue
		}
		b.WriteString(rest[:at])
		start := b.Len()
		b.WriteString(link)
		spans = append(spans, span{start: start, end: b.Len()})
		rest = rest[at+len(token):]
	}
	b.WriteString(rest)

	return b.String(), spans
}

// resolveCitations replaces in-range [n] markers with chips. Markers inside
// restored anchors are left alone.
func (f *Formatter) resolveCitations(s string, anchors []span, sources []model.Source, target model.LinkTarget) string {
	matches := citationRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if overlapsAny(m[0], m[1], anchors) {
			continue
		}
		n, err := strconv.Atoi(s[m[2]:m[3]])
		if err != nil || n < 1 || n > len(sources) {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(f.Chip(n, sources[n-1], target))
		last = m[1]
	}
	b.WriteString(s[last:])

	return b.String()
}

func overlapsAny(start, end int, spans []span) bool {
	for _, sp := range spans {
		if start < sp.end && end > sp.start {
			return true
		}
	}
	return false
}

// anchor builds a plain link with escaped href and label
func anchor(href, label string, target model.LinkTarget) string {
	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(EscapeHTML(safeHref(href)))
	b.WriteString(`" target="`)
	b.WriteString(target.Attr())
	b.WriteString(`"`)
	b.WriteString(relAttr(target))
	b.WriteString(`>`)
	b.WriteString(EscapeHTML(label))
	b.WriteString(`</a>`)
	return b.String()
}

// relAttr returns the rel attribute, with its leading space, for new-tab links
func relAttr(target model.LinkTarget) string {
	if target.IsNewTab() {
		return ` rel="noopener noreferrer"`
	}
	return ""
}

// safeHref neutralizes script-capable URL schemes
func safeHref(href string) string {
	trimmed := strings.ToLower(strings.TrimSpace(href))
	// Browsers ignore embedded tabs and newlines in schemes.
	trimmed = strings.NewReplacer("\t", "", "\n", "", "\r", "").Replace(trimmed)
	for _, scheme := range []string{"javascript:", "vbscript:", "data:"} {
		if strings.HasPrefix(trimmed, scheme) {
			return "#"
		}
	}
	return href
}
