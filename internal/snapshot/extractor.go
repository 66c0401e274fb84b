// internal/snapshot/extractor.go

// Package snapshot turns a parsed HTML document into the bounded, structured
// page description the planning and verification oracles reason over.
package snapshot

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/dom"
)

// Caps keep the snapshot small enough to fit in an oracle prompt regardless of
// page size.
const (
	maxHeadings = 50
	maxElements = 150
	maxForms    = 25
	maxFields   = 30
	maxTextLen  = 4000
)

// interactiveTags is the set of elements the extractor reports as actionable.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"label":    true,
	"select":   true,
	"textarea": true,
}

// Meta carries page facts the document alone cannot supply.
type Meta struct {
	URL      string
	Title    string
	Viewport schemas.Viewport
}

// Capture extracts a snapshot from the parsed document. It never fails: a nil
// or unusable document yields an empty snapshot carrying whatever metadata was
// provided. When the primary pass over visible content finds neither headings
// nor interactive elements, a second, laxer pass includes hidden elements so
// the oracles are not left staring at a blank page description.
func Capture(doc *html.Node, meta Meta) *schemas.Snapshot {
	snap := schemas.EmptySnapshot()
	snap.URL = meta.URL
	snap.Title = meta.Title
	snap.Viewport = meta.Viewport

	if doc == nil {
		return snap
	}

	if snap.Title == "" {
		snap.Title = documentTitle(doc)
	}

	extract(doc, snap, false)
	if len(snap.Headings) == 0 && len(snap.Elements) == 0 {
		extract(doc, snap, true)
	}

	body := dom.FindBody(doc)
	snap.Text = truncate(dom.NodeText(body), maxTextLen)

	return snap
}

// extract fills the structured sections of the snapshot. With includeHidden
// set it stops filtering on visibility, which is the degraded "robust" pass.
func extract(doc *html.Node, snap *schemas.Snapshot, includeHidden bool) {
	snap.Headings = snap.Headings[:0]
	snap.Elements = snap.Elements[:0]
	snap.Forms = snap.Forms[:0]

	labels := labelIndex(doc)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if !includeHidden && dom.Hidden(n) {
				// Hidden subtrees are skipped wholesale on the primary pass.
				return
			}
			switch {
			case headingLevel(n.Data) > 0:
				if len(snap.Headings) < maxHeadings {
					if text := dom.NodeText(n); text != "" {
						snap.Headings = append(snap.Headings, schemas.Heading{
							Level:    headingLevel(n.Data),
							Text:     text,
							Selector: dom.Synthesize(doc, n),
						})
					}
				}
			case n.Data == "form":
				if len(snap.Forms) < maxForms {
					snap.Forms = append(snap.Forms, captureForm(doc, n, labels, includeHidden))
				}
			}
			if interactiveTags[n.Data] && len(snap.Elements) < maxElements {
				snap.Elements = append(snap.Elements, captureElement(doc, n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

func captureElement(doc, n *html.Node) schemas.Element {
	return schemas.Element{
		Tag:         n.Data,
		Role:        dom.Attr(n, "role"),
		Type:        dom.Attr(n, "type"),
		Name:        dom.Attr(n, "name"),
		ID:          dom.Attr(n, "id"),
		Classes:     dom.Classes(n),
		Text:        truncate(dom.NodeText(n), 200),
		Placeholder: dom.Attr(n, "placeholder"),
		AriaLabel:   dom.Attr(n, "aria-label"),
		Href:        dom.Attr(n, "href"),
		Selector:    dom.Synthesize(doc, n),
		XPath:       dom.SynthesizeXPath(n),
	}
}

func captureForm(doc, form *html.Node, labels map[string]string, includeHidden bool) schemas.Form {
	f := schemas.Form{
		ID:       dom.Attr(form, "id"),
		Action:   dom.Attr(form, "action"),
		Method:   strings.ToUpper(dom.Attr(form, "method")),
		Selector: dom.Synthesize(doc, form),
		Fields:   []schemas.FormField{},
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(f.Fields) >= maxFields {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input", "select", "textarea":
				if includeHidden || !dom.Hidden(n) {
					f.Fields = append(f.Fields, schemas.FormField{
						Tag:         n.Data,
						Type:        dom.Attr(n, "type"),
						Name:        dom.Attr(n, "name"),
						ID:          dom.Attr(n, "id"),
						Placeholder: dom.Attr(n, "placeholder"),
						Label:       labels[dom.Attr(n, "id")],
						Selector:    dom.Synthesize(doc, n),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(form)
	return f
}

// labelIndex maps element ids to the text of the label pointing at them.
func labelIndex(doc *html.Node) map[string]string {
	labels := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "label" {
			if target := dom.Attr(n, "for"); target != "" {
				if text := dom.NodeText(n); text != "" {
					labels[target] = text
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return labels
}

func documentTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = dom.CollapseWhitespace(rawText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// rawText concatenates text children without the visibility filtering NodeText
// applies; title lives in head, which NodeText skips.
func rawText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' {
		if lvl, err := strconv.Atoi(tag[1:]); err == nil && lvl >= 1 && lvl <= 6 {
			return lvl
		}
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	// Cut on a rune boundary.
	cut := maxLen
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
