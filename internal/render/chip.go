package render

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/lumify/internal/model"
)

// DefaultFaviconService is the favicon lookup used when none is configured
const DefaultFaviconService = "https://www.google.com/s2/favicons?domain={domain}&sz=32"

const (
	maxDisplayPath = 30
	maxDisplayRaw  = 40
	ellipsis       = "..."
)

// Chip renders citation n as an anchor carrying a hover tooltip with the
// source favicon, title and shortened URL. Broken or missing URLs degrade to
// textual fallbacks.
func (f *Formatter) Chip(ordinal int, source model.Source, target model.LinkTarget) string {
	n := strconv.Itoa(ordinal)

	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(EscapeHTML(safeHref(source.URL)))
	b.WriteString(`" target="`)
	b.WriteString(target.Attr())
	b.WriteString(`"`)
	b.WriteString(relAttr(target))
	b.WriteString(` class="lumify-widget-citation" data-citation="`)
	b.WriteString(n)
	b.WriteString(`">`)
	b.WriteString(n)
	b.WriteString(`<span class="lumify-widget-citation-tooltip">`)
	b.WriteString(`<span class="lumify-widget-citation-tooltip-content">`)
	b.WriteString(`<span class="lumify-widget-citation-favicon"><img src="`)
	b.WriteString(EscapeHTML(f.FaviconURL(source.URL)))
	b.WriteString(`" alt="" onerror="this.style.display='none'"></span>`)
	b.WriteString(`<span class="lumify-widget-citation-info">`)
	b.WriteString(`<span class="lumify-widget-citation-title">`)
	b.WriteString(EscapeHTML(SourceTitle(source)))
	b.WriteString(`</span><span class="lumify-widget-citation-url">`)
	b.WriteString(EscapeHTML(DisplayURL(source.URL)))
	b.WriteString(`</span></span></span></span></a>`)

	return b.String()
}

// FaviconURL returns the favicon lookup URL for the source host, or "" when
// the URL cannot be parsed.
func (f *Formatter) FaviconURL(rawURL string) string {
	u, ok := parseAbsolute(rawURL)
	if !ok || u.Hostname() == "" {
		return ""
	}
	return strings.ReplaceAll(f.faviconService, "{domain}", url.QueryEscape(u.Hostname()))
}

// FaviconURL uses the default favicon service
func FaviconURL(rawURL string) string {
	return defaultFormatter.FaviconURL(rawURL)
}

// DisplayURL shortens a URL for the tooltip: hostname plus path, with long
// paths cut to 27 characters and an ellipsis. Unparseable input is shown
// raw, cut at 37 characters plus ellipsis when longer than 40.
func DisplayURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, ok := parseAbsolute(rawURL)
	if !ok {
		return truncate(rawURL, maxDisplayRaw)
	}

	path := u.EscapedPath()
	switch {
	case u.Opaque != "":
		path = u.Opaque
	case path == "" && u.Host != "":
		path = "/"
	}
	return u.Hostname() + truncate(path, maxDisplayPath)
}

// SourceTitle picks title, then page_title, then the hostname without a
// leading "www.", then "Source".
func SourceTitle(s model.Source) string {
	if s.Title != "" {
		return s.Title
	}
	if s.PageTitle != "" {
		return s.PageTitle
	}
	if domain := ExtractDomain(s.URL); domain != "" {
		return domain
	}
	return "Source"
}

// ExtractDomain returns the hostname with a leading "www." removed, or ""
// when the URL cannot be parsed.
func ExtractDomain(rawURL string) string {
	u, ok := parseAbsolute(rawURL)
	if !ok {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// hostSchemes are the schemes a browser URL constructor rejects without a host
var hostSchemes = map[string]bool{"http": true, "https": true, "ws": true, "wss": true, "ftp": true}

// parseAbsolute parses rawURL and accepts only absolute URLs, matching what
// a browser URL constructor accepts without a base.
func parseAbsolute(rawURL string) (*url.URL, bool) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if u.Opaque == "" && u.Host == "" && hostSchemes[strings.ToLower(u.Scheme)] {
		return nil, false
	}
	return u, true
}

// truncate cuts s to limit-3 runes plus an ellipsis when it exceeds limit runes
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
