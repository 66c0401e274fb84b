// internal/dom/node.go
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of the named attribute, or "" when absent.
func Attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present, regardless of value.
func HasAttr(n *html.Node, name string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}

// Classes splits the class attribute into its individual class names.
func Classes(n *html.Node) []string {
	raw := Attr(n, "class")
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

// Hidden reports whether the element is hidden from the user by markup alone:
// the hidden attribute, aria-hidden, input type=hidden, or an inline style
// that removes it from view. Computed styles are out of reach here, so this is
// a best-effort judgement over the parsed tree.
func Hidden(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if HasAttr(n, "hidden") {
		return true
	}
	if strings.EqualFold(Attr(n, "aria-hidden"), "true") {
		return true
	}
	if n.Data == "input" && strings.EqualFold(Attr(n, "type"), "hidden") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(Attr(n, "style"), " ", ""))
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	return false
}

// skippedTags never contribute visible text.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// NodeText collects the visible text of the subtree rooted at n, with
// whitespace collapsed to single spaces. Script, style, and hidden subtrees
// contribute nothing; images contribute their alt text.
func NodeText(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return CollapseWhitespace(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	case html.ElementNode:
		if skippedTags[n.Data] || Hidden(n) {
			return
		}
		if n.Data == "img" {
			if alt := Attr(n, "alt"); alt != "" {
				sb.WriteString(alt)
				sb.WriteByte(' ')
			}
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// CollapseWhitespace trims the string and folds every run of whitespace into a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FindBody returns the body element of a parsed document, or the document
// itself when no body exists (fragment parses).
func FindBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if doc != nil {
		walk(doc)
	}
	if body == nil {
		return doc
	}
	return body
}
