package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// textStyle controls how element subtrees are rendered by textOf.
type textStyle struct {
	// links renders a[href] as [text](href).
	links bool
	// lists renders li as "- text".
	lists bool
	// upper renders matching elements as one upper-cased chunk.
	upper func(n *html.Node) bool
}

var plain = textStyle{}

// textOf collects the text chunks of the selection in document order, trims
// each one, drops empty chunks and joins the rest with sep.
func textOf(sel *goquery.Selection, sep string, style textStyle) string {
	var chunks []string
	for _, n := range sel.Nodes {
		collect(n, style, &chunks)
	}
	return strings.Join(chunks, sep)
}

func collect(n *html.Node, style textStyle, out *[]string) {
	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*out = append(*out, s)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch {
		case n.DataAtom == atom.Script || n.DataAtom == atom.Style:
			return
		case style.upper != nil && style.upper(n):
			if s := strings.ToUpper(joinChildren(n, "\n", plain)); s != "" {
				*out = append(*out, s)
			}
			return
		case style.links && n.DataAtom == atom.A && hasAttr(n, "href"):
			*out = append(*out, "["+joinChildren(n, "", plain)+"]("+attr(n, "href")+")")
			return
		case style.lists && n.DataAtom == atom.Li:
			*out = append(*out, "- "+joinChildren(n, "", style))
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, style, out)
	}
}

func joinChildren(n *html.Node, sep string, style textStyle) string {
	var chunks []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, style, &chunks)
	}
	return strings.Join(chunks, sep)
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// lines returns the trimmed non-empty text chunks of sel.
func lines(sel *goquery.Selection) []string {
	text := textOf(sel, "\n", plain)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// withClass matches elements of type a carrying class.
func withClass(a atom.Atom, class string) func(n *html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != a {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

// Markdown renders the text of sel one chunk per line, with links as
// [text](href) and list items as "- text".
func Markdown(sel *goquery.Selection) string {
	return textOf(sel, "\n", textStyle{links: true, lists: true})
}
