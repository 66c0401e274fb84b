// internal/dom/selector.go
package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Synthesize builds a CSS selector that matches exactly the target node within
// the document. It prefers short, stable selectors: a unique id wins outright,
// then a child chain of tag/class segments grown upward until it becomes
// unique, and finally a fully positional :nth-child path that is unique by
// construction.
func Synthesize(doc, target *html.Node) string {
	if doc == nil || target == nil || target.Type != html.ElementNode {
		return ""
	}

	if id := Attr(target, "id"); isCSSIdentifier(id) {
		sel := "#" + id
		if matchesOnly(doc, sel, target) {
			return sel
		}
	}

	var segments []string
	for n := target; n != nil && n.Type == html.ElementNode; n = parentElement(n) {
		if n.Data == "html" {
			break
		}

		// An ancestor with a unique id makes a stable anchor for the chain
		// built so far.
		if n != target {
			if id := Attr(n, "id"); isCSSIdentifier(id) {
				sel := strings.Join(append([]string{"#" + id}, segments...), " > ")
				if matchesOnly(doc, sel, target) {
					return sel
				}
			}
		}

		segments = append([]string{segmentFor(n)}, segments...)
		sel := strings.Join(segments, " > ")
		if matchesOnly(doc, sel, target) {
			return sel
		}
	}

	return positionalPath(target)
}

// segmentFor describes one node as a selector segment: tag, a usable class if
// any, and a :nth-of-type qualifier when same-tag siblings would otherwise
// make the segment ambiguous at this level.
func segmentFor(n *html.Node) string {
	tag := strings.ToLower(n.Data)
	seg := tag

	for _, class := range Classes(n) {
		if isCSSIdentifier(class) {
			seg += "." + class
			break
		}
	}

	if k, total := typeIndex(n); total > 1 {
		seg += fmt.Sprintf(":nth-of-type(%d)", k)
	}
	return seg
}

// positionalPath builds an absolute child chain using :nth-child indices. It
// matches exactly one node by construction, at the cost of brittleness.
func positionalPath(target *html.Node) string {
	var segments []string
	for n := target; n != nil && n.Type == html.ElementNode; n = parentElement(n) {
		tag := strings.ToLower(n.Data)
		if tag == "html" {
			segments = append([]string{"html"}, segments...)
			break
		}
		segments = append([]string{fmt.Sprintf("%s:nth-child(%d)", tag, childIndex(n))}, segments...)
	}
	return strings.Join(segments, " > ")
}

// matchesOnly reports whether the selector matches the target and nothing
// else in the document.
func matchesOnly(doc *html.Node, selector string, target *html.Node) bool {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return false
	}
	matches := sel.MatchAll(doc)
	return len(matches) == 1 && matches[0] == target
}

// typeIndex returns the 1-based position of n among same-tag element siblings
// and the total count of those siblings.
func typeIndex(n *html.Node) (index, total int) {
	tag := n.Data
	index = 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && prev.Data == tag {
			index++
		}
	}
	total = index
	for next := n.NextSibling; next != nil; next = next.NextSibling {
		if next.Type == html.ElementNode && next.Data == tag {
			total++
		}
	}
	return index, total
}

// childIndex returns the 1-based position of n among all element siblings.
func childIndex(n *html.Node) int {
	index := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode {
			index++
		}
	}
	return index
}

func parentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// isCSSIdentifier reports whether s can appear verbatim in a selector as an id
// or class name without escaping. Anything fancier is skipped rather than
// escaped.
func isCSSIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		case r == '-':
			if i == 0 && len(s) == 1 {
				return false
			}
			if i == 1 && s[0] == '-' {
				// "--x" custom-ident style is fine.
				continue
			}
			if i == 0 {
				// A leading hyphen must not be followed by a digit.
				if len(s) > 1 && s[1] >= '0' && s[1] <= '9' {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}
