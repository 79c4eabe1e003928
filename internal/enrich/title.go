package enrich

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractTitle returns the document title, preferring <title> over the
// og:title meta tag. Whitespace is collapsed. Titles inside <svg> are ignored.
func ExtractTitle(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))

	var ogTitle string
	svgDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ogTitle
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Svg:
				if tok.Type == html.StartTagToken {
					svgDepth++
				}
			case atom.Title:
				if svgDepth > 0 || tok.Type == html.SelfClosingTagToken {
					continue
				}
				if z.Next() == html.TextToken {
					if title := collapse(string(z.Text())); title != "" {
						return title
					}
				}
			case atom.Meta:
				if ogTitle == "" && attrValue(tok, "property") == "og:title" {
					ogTitle = collapse(attrValue(tok, "content"))
				}
			case atom.Body:
				if ogTitle != "" {
					return ogTitle
				}
			}
		case html.EndTagToken:
			if tok := z.Token(); tok.DataAtom == atom.Svg && svgDepth > 0 {
				svgDepth--
			}
		}
	}
}

func attrValue(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
