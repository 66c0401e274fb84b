// internal/dom/xpath.go
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// SynthesizeXPath builds an absolute XPath expression for the node, anchored
// on the nearest ancestor with an id attribute when one exists. Indices are
// 1-based and count only siblings of the same tag.
func SynthesizeXPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var path []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}

		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		// An id gives a stable anchor and ends the climb. Ids containing an
		// apostrophe would break the literal, so those fall through to the
		// positional form.
		if id := Attr(n, "id"); id != "" && !strings.Contains(id, "'") {
			path = append(path, fmt.Sprintf(`//*[@id='%s']`, id))
			break
		}

		index := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(path) == 0 {
		return "/"
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return xpath
}
