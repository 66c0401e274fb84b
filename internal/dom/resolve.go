// internal/dom/resolve.go
package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
)

// ErrNotFound reports that no element in the document matched the locator by
// any strategy.
var ErrNotFound = errors.New("no matching element in document")

// fuzzyTags is the set of elements the text fallback is willing to pick. It
// deliberately covers only things a user can act on.
var fuzzyTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"label":    true,
}

// BySelector returns the first element matching the CSS selector.
func BySelector(doc *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	n := sel.MatchFirst(doc)
	if n == nil {
		return nil, fmt.Errorf("selector %q: %w", selector, ErrNotFound)
	}
	return n, nil
}

// ByXPath returns the first element matching the XPath expression.
func ByXPath(doc *html.Node, xpath string) (*html.Node, error) {
	n, err := htmlquery.Query(doc, xpath)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", xpath, err)
	}
	if n == nil {
		return nil, fmt.Errorf("xpath %q: %w", xpath, ErrNotFound)
	}
	return n, nil
}

// ByFuzzyText scans interactive elements for one whose visible text or
// accessible labeling contains the needle, case-insensitively. Exact matches
// beat substring matches; ties go to document order.
func ByFuzzyText(doc *html.Node, needle string) *html.Node {
	needle = strings.ToLower(CollapseWhitespace(needle))
	if needle == "" {
		return nil
	}

	var exact, partial *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if exact != nil {
			return
		}
		if n.Type == html.ElementNode && fuzzyTags[n.Data] && !Hidden(n) {
			for _, candidate := range fuzzyCandidates(n) {
				candidate = strings.ToLower(CollapseWhitespace(candidate))
				if candidate == "" {
					continue
				}
				if candidate == needle {
					exact = n
					return
				}
				if partial == nil && strings.Contains(candidate, needle) {
					partial = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if doc != nil {
		walk(doc)
	}

	if exact != nil {
		return exact
	}
	return partial
}

// fuzzyCandidates lists the strings a user might have meant when naming the
// element: its visible text, then the common labeling attributes.
func fuzzyCandidates(n *html.Node) []string {
	return []string{
		NodeText(n),
		Attr(n, "aria-label"),
		Attr(n, "placeholder"),
		Attr(n, "value"),
		Attr(n, "name"),
		Attr(n, "title"),
	}
}

// Resolve maps a locator to a concrete element, trying strategies in a fixed
// order: CSS selector, then XPath, then the fuzzy text fallback seeded with
// the locator's raw text.
func Resolve(doc *html.Node, loc schemas.Locator) (*html.Node, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document: %w", ErrNotFound)
	}

	if loc.Selector != "" {
		if n, err := BySelector(doc, loc.Selector); err == nil {
			return n, nil
		}
	}
	if loc.XPath != "" {
		if n, err := ByXPath(doc, loc.XPath); err == nil {
			return n, nil
		}
	}
	if n := ByFuzzyText(doc, loc.String()); n != nil {
		return n, nil
	}

	return nil, fmt.Errorf("locator %q: %w", loc.String(), ErrNotFound)
}
