// internal/browser/observer.go
package browser

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/snapshot"
)

// PageObserver captures snapshots of a live view. Each observation serializes
// the current document, parses it, and runs the snapshot extractor over the
// parse tree; the tree itself is returned alongside so locator resolution can
// reuse it without a second serialization.
type PageObserver struct {
	view   View
	logger *zap.Logger
}

// NewPageObserver wires an observer to a view.
func NewPageObserver(view View, logger *zap.Logger) *PageObserver {
	return &PageObserver{
		view:   view,
		logger: logger.Named("browser.observer"),
	}
}

// Observe captures the page's current state. The returned document is the
// parsed tree the snapshot was extracted from.
func (o *PageObserver) Observe(ctx context.Context) (*schemas.Snapshot, *html.Node, error) {
	markup, err := o.view.HTML(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read page HTML: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	meta := snapshot.Meta{}
	if url, err := o.view.Location(ctx); err == nil {
		meta.URL = url
	} else {
		o.logger.Debug("Could not read page location.", zap.Error(err))
	}
	if title, err := o.view.Title(ctx); err == nil {
		meta.Title = title
	}
	if vp, err := o.view.ViewportSize(ctx); err == nil {
		meta.Viewport = vp
	}

	snap := snapshot.Capture(doc, meta)
	o.fillBounds(ctx, snap)
	o.logger.Debug("Captured page snapshot.",
		zap.String("url", snap.URL),
		zap.Int("elements", len(snap.Elements)),
		zap.Int("headings", len(snap.Headings)),
		zap.Int("forms", len(snap.Forms)),
	)
	return snap, doc, nil
}

// boundsScript resolves each xpath in the rendered frame and returns its
// layout box in document coordinates, or null where the xpath no longer
// matches.
const boundsScript = `(function(paths) {
	return paths.map(function(p) {
		var node = null;
		try {
			node = document.evaluate(p, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (e) {}
		if (!node || !node.getBoundingClientRect) return null;
		var r = node.getBoundingClientRect();
		return {x: r.x + window.scrollX, y: r.y + window.scrollY, width: r.width, height: r.height};
	});
})(%s)`

// fillBounds annotates the snapshot's elements with layout boxes from the
// rendered frame. Best effort: a failed script leaves all-zero bounds, which
// the snapshot data model already documents as "layout unavailable".
func (o *PageObserver) fillBounds(ctx context.Context, snap *schemas.Snapshot) {
	if len(snap.Elements) == 0 {
		return
	}

	paths := make([]string, len(snap.Elements))
	for i, el := range snap.Elements {
		paths[i] = el.XPath
	}

	var rects []*schemas.BoundingRect
	if err := o.view.Evaluate(ctx, fmt.Sprintf(boundsScript, jsonEncode(paths)), &rects); err != nil {
		o.logger.Debug("Could not read element bounds.", zap.Error(err))
		return
	}
	for i := range snap.Elements {
		if i < len(rects) && rects[i] != nil {
			snap.Elements[i].Bounds = *rects[i]
		}
	}
}
