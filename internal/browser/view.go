// internal/browser/view.go

// Package browser owns the live page: a chromedp-driven Chrome target behind
// the View interface. Everything above this package works on parsed documents
// and snapshots; only this package constructs and runs page scripts.
package browser

import (
	"context"
	"errors"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
)

// ErrElementGone reports that a selector no longer matches anything on the
// live page, usually because the DOM changed between observation and action.
var ErrElementGone = errors.New("element no longer present on page")

// View is the minimal surface the engine needs from a live page. The
// production implementation is Page; tests substitute fakes.
type View interface {
	// Navigate loads the URL. A page that never fires its load event within
	// the navigation timeout is treated as loaded anyway; only outright
	// network failures are errors.
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	// CanGoBack and CanGoForward report whether history navigation in the
	// respective direction would move anywhere.
	CanGoBack(ctx context.Context) (bool, error)
	CanGoForward(ctx context.Context) (bool, error)

	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	ViewportSize(ctx context.Context) (schemas.Viewport, error)
	// HTML returns the serialized current document.
	HTML(ctx context.Context) (string, error)
	// Evaluate runs a script in the page and decodes its value into out.
	Evaluate(ctx context.Context, script string, out interface{}) error

	Click(ctx context.Context, selector string) error
	SetValue(ctx context.Context, selector, value string) error
	// ScrollBy scrolls the element matching selector, or the window when
	// selector is empty.
	ScrollBy(ctx context.Context, selector string, dx, dy float64) error

	Close(ctx context.Context) error
}
