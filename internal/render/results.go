package render

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/lumify/internal/model"
)

const ctaBadge = `<span class="lumify-widget-cta-badge" aria-hidden="true">` +
	`<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2.5" stroke-linecap="round" stroke-linejoin="round">` +
	`<polyline points="9 18 15 12 9 6"></polyline></svg></span>`

// CTA renders a call-to-action block. It renders nothing unless both url and
// text are present. The target comes from the CTA itself, then fallback,
// then the widget default.
func (f *Formatter) CTA(cta *model.CTA, fallback model.LinkTarget) string {
	if cta == nil || cta.URL == "" || cta.Text == "" {
		return ""
	}

	title := cta.Title
	if title == "" {
		title = cta.Text
	}
	target := model.ResolveLinkTarget(cta.Target, string(fallback), string(f.defaultTarget))

	var b strings.Builder
	b.WriteString(`<div class="lumify-widget-cta"><a href="`)
	b.WriteString(EscapeHTML(safeHref(cta.URL)))
	b.WriteString(`" target="`)
	b.WriteString(target.Attr())
	b.WriteString(`"`)
	b.WriteString(relAttr(target))
	b.WriteString(` class="lumify-widget-cta-link" title="`)
	b.WriteString(EscapeHTML(title))
	b.WriteString(`"`)
	if cta.Type != "" {
		b.WriteString(` data-cta-type="`)
		b.WriteString(EscapeHTML(cta.Type))
		b.WriteString(`"`)
	}
	b.WriteString(`><span class="lumify-widget-cta-text">`)
	b.WriteString(EscapeHTML(cta.Text))
	b.WriteString(`</span>`)
	b.WriteString(ctaBadge)
	b.WriteString(`</a></div>`)

	return b.String()
}

// Results renders a complete search response for the results container
func (f *Formatter) Results(resp *model.SearchResponse) string {
	if resp == nil || !resp.Success {
		return f.Error(errors.New(resp.ErrorMessage()))
	}

	target := model.ResolveLinkTarget(resp.MetadataLinkTarget(), string(f.defaultTarget))

	var b strings.Builder
	if answer := resp.Answer(); answer != "" {
		b.WriteString(`<div class="lumify-widget-answer">`)
		b.WriteString(f.Format(answer, resp.DirectAnswer.Sources, target))
		b.WriteString(`</div>`)

		b.WriteString(f.CTA(resp.DirectAnswer.CTA, target))

		if resp.ConfidenceScore != 0 {
			b.WriteString(`<div class="lumify-widget-confidence">Confidence: `)
			b.WriteString(strconv.Itoa(confidencePercent(resp.ConfidenceScore)))
			b.WriteString(`%</div>`)
		}
		return b.String()
	}

	message := "No results found for your search."
	if resp.NoResults != nil {
		message = "No results found."
		if resp.NoResults.Message != "" {
			message = resp.NoResults.Message
		}
	}
	b.WriteString(`<div class="lumify-widget-no-results">`)
	b.WriteString(EscapeHTML(message))
	b.WriteString(`</div>`)

	return b.String()
}

// confidencePercent rounds half up, so 0.875 reads as 88%
func confidencePercent(score float64) int {
	return int(math.Floor(score*100 + 0.5))
}

// Error renders a failed search. Authentication failures get a credentials
// notice instead of the raw message.
func (f *Formatter) Error(err error) string {
	if err == nil {
		err = errors.New("Search failed")
	}

	if errors.Is(err, model.ErrAuthentication) || err.Error() == model.ErrAuthentication.Error() {
		return `<div class="lumify-widget-error"><strong>Authentication Error:</strong> API credentials not recognized.` +
			`<br><br><small>Visit <a href="https://www.lumify.ai" target="_blank" rel="noopener">lumify.ai</a> to get your API keys.</small></div>`
	}

	return `<div class="lumify-widget-error">Search failed: ` + EscapeHTML(err.Error()) +
		`<br><br><small>Please try again or contact support if the problem persists.</small></div>`
}

// Popular renders popular questions as list items
func (f *Formatter) Popular(questions []string) string {
	var b strings.Builder
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		escaped := EscapeHTML(q)
		b.WriteString(`<li class="lumify-widget-popular-item" data-question="`)
		b.WriteString(escaped)
		b.WriteString(`">`)
		b.WriteString(escaped)
		b.WriteString(`</li>`)
	}
	return b.String()
}
