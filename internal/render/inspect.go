package render

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Anchor describes a link found in rendered markup
type Anchor struct {
	Href       string `json:"href"`
	Target     string `json:"target,omitempty"`
	Rel        string `json:"rel,omitempty"`
	Class      string `json:"class,omitempty"`
	Text       string `json:"text"`                  // Direct text of the anchor, excluding tooltip content
	Ordinal    int    `json:"ordinal,omitempty"`     // Citation chips only
	Title      string `json:"title,omitempty"`       // Citation chips only
	DisplayURL string `json:"display_url,omitempty"` // Citation chips only
	Favicon    string `json:"favicon,omitempty"`     // Citation chips only
}

// IsCitation reports whether the anchor is a citation chip
func (a Anchor) IsCitation() bool {
	return hasClass(a.Class, "lumify-widget-citation")
}

// Anchors parses an HTML fragment and returns every anchor in document order
func Anchors(fragment string) ([]Anchor, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, err
	}

	var anchors []Anchor
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			anchors = append(anchors, readAnchor(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	return anchors, nil
}

// Citations returns only the citation chips of a fragment
func Citations(fragment string) ([]Anchor, error) {
	anchors, err := Anchors(fragment)
	if err != nil {
		return nil, err
	}

	var chips []Anchor
	for _, a := range anchors {
		if a.IsCitation() {
			chips = append(chips, a)
		}
	}
	return chips, nil
}

func readAnchor(n *html.Node) Anchor {
	a := Anchor{
		Href:   attr(n, "href"),
		Target: attr(n, "target"),
		Rel:    attr(n, "rel"),
		Class:  attr(n, "class"),
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	a.Text = strings.TrimSpace(text.String())

	if !a.IsCitation() {
		return a
	}

	a.Ordinal, _ = strconv.Atoi(attr(n, "data-citation"))
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode {
			class := attr(c, "class")
			switch {
			case hasClass(class, "lumify-widget-citation-title"):
				a.Title = textContent(c)
			case hasClass(class, "lumify-widget-citation-url"):
				a.DisplayURL = textContent(c)
			case c.DataAtom == atom.Img:
				a.Favicon = attr(c, "src")
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)

	return a
}

func attr(n *html.Node, key string) string {
	for _, at := range n.Attr {
		if at.Key == key {
			return at.Val
		}
	}
	return ""
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
