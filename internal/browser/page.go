// internal/browser/page.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/config"
)

// Page implements View on top of a dedicated Chrome target.
type Page struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	navTimeout  time.Duration
	logger      *zap.Logger
}

var _ View = (*Page)(nil)

// NewPage launches a browser target configured per cfg. The returned Page owns
// the browser process; Close releases it.
func NewPage(parent context.Context, cfg config.BrowserConfig, navTimeout time.Duration, logger *zap.Logger) (*Page, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, execOptions(cfg)...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Starting the browser eagerly surfaces launch failures here instead of on
	// the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Page{
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		navTimeout:  navTimeout,
		logger:      logger.Named("browser.page"),
	}, nil
}

// execOptions translates the browser config into allocator options.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	for _, arg := range cfg.Args {
		if key, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "="); found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// Navigate loads the URL and waits for the load event. The wait races a timer:
// when the timer wins, the navigation is treated as a soft success, because
// many pages are usable long before load fires. Network-level failures
// reported by the browser are hard errors.
func (p *Page) Navigate(ctx context.Context, targetURL string) error {
	runCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()

	loadCh := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(runCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case loadCh <- struct{}{}:
			default:
			}
		}
	})

	p.logger.Info("Navigating", zap.String("url", targetURL))

	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(c context.Context) error {
		_, _, errText, _, err := page.Navigate(targetURL).Do(c)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigation to %q failed: %s", targetURL, errText)
		}
		return nil
	}))
	if err != nil {
		return err
	}

	timer := time.NewTimer(p.navTimeout)
	defer timer.Stop()

	select {
	case <-loadCh:
		return nil
	case <-timer.C:
		// Soft success. The document may still be settling but is reachable.
		p.logger.Debug("Load event not observed before timeout; proceeding.",
			zap.String("url", targetURL), zap.Duration("timeout", p.navTimeout))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Reload reloads the current document.
func (p *Page) Reload(ctx context.Context) error {
	return p.run(ctx, chromedp.Reload())
}

// Back moves one entry back in the target's navigation history. Moving past
// the first entry is a no-op.
func (p *Page) Back(ctx context.Context) error {
	return p.stepHistory(ctx, -1)
}

// Forward moves one entry forward in the target's navigation history. Moving
// past the last entry is a no-op.
func (p *Page) Forward(ctx context.Context) error {
	return p.stepHistory(ctx, +1)
}

func (p *Page) stepHistory(ctx context.Context, delta int64) error {
	return p.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		index, entries, err := page.GetNavigationHistory().Do(c)
		if err != nil {
			return fmt.Errorf("failed to read navigation history: %w", err)
		}
		next := index + delta
		if next < 0 || next >= int64(len(entries)) {
			return nil
		}
		return page.NavigateToHistoryEntry(entries[next].ID).Do(c)
	}))
}

// CanGoBack reports whether a history entry exists before the current one.
func (p *Page) CanGoBack(ctx context.Context) (bool, error) {
	return p.historyStepAvailable(ctx, -1)
}

// CanGoForward reports whether a history entry exists after the current one.
func (p *Page) CanGoForward(ctx context.Context) (bool, error) {
	return p.historyStepAvailable(ctx, +1)
}

func (p *Page) historyStepAvailable(ctx context.Context, delta int64) (bool, error) {
	var available bool
	err := p.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		index, entries, err := page.GetNavigationHistory().Do(c)
		if err != nil {
			return fmt.Errorf("failed to read navigation history: %w", err)
		}
		next := index + delta
		available = next >= 0 && next < int64(len(entries))
		return nil
	}))
	return available, err
}

// Location returns the current document URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// ViewportSize reports the current inner dimensions of the window.
func (p *Page) ViewportSize(ctx context.Context) (schemas.Viewport, error) {
	var size [2]int
	if err := p.Evaluate(ctx, `[window.innerWidth, window.innerHeight]`, &size); err != nil {
		return schemas.Viewport{}, err
	}
	return schemas.Viewport{Width: size[0], Height: size[1]}, nil
}

// HTML returns the serialized current document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var markup string
	if err := p.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return markup, nil
}

// Click scrolls the element into view and clicks it through the DOM. The
// scripted click avoids chromedp's visibility wait, which can stall on
// overlapped but perfectly clickable elements.
func (p *Page) Click(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(function(sel) {
		const node = document.querySelector(sel);
		if (!node) return false;
		node.scrollIntoView({block: 'center', inline: 'center'});
		node.click();
		return true;
	})(%s)`, jsonEncode(selector))

	var ok bool
	if err := p.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("click script failed for %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("click %q: %w", selector, ErrElementGone)
	}
	return nil
}

// SetValue replaces the element's value and fires the input and change events
// frameworks listen for.
func (p *Page) SetValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(function(sel, val) {
		const node = document.querySelector(sel);
		if (!node) return false;
		node.focus();
		node.value = val;
		node.dispatchEvent(new Event('input', {bubbles: true}));
		node.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})(%s, %s)`, jsonEncode(selector), jsonEncode(value))

	var ok bool
	if err := p.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("set value script failed for %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("set value %q: %w", selector, ErrElementGone)
	}
	return nil
}

// ScrollBy scrolls the element matching selector, or the window when selector
// is empty.
func (p *Page) ScrollBy(ctx context.Context, selector string, dx, dy float64) error {
	var script string
	if selector == "" {
		script = fmt.Sprintf(`(function(x, y) { window.scrollBy(x, y); return true; })(%v, %v)`, dx, dy)
	} else {
		script = fmt.Sprintf(`(function(sel, x, y) {
			const node = document.querySelector(sel);
			if (!node) return false;
			node.scrollBy(x, y);
			return true;
		})(%s, %v, %v)`, jsonEncode(selector), dx, dy)
	}

	var ok bool
	if err := p.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("scroll script failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("scroll %q: %w", selector, ErrElementGone)
	}
	return nil
}

// Close tears down the target and the browser process.
func (p *Page) Close(ctx context.Context) error {
	p.logger.Info("Closing browser page.")
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	p.allocCancel()
	return err
}

// Evaluate runs a script with the standard evaluation options: return the
// value itself, await promises, and keep page-side exceptions quiet.
func (p *Page) Evaluate(ctx context.Context, script string, out interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, out, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
}

// run executes chromedp actions against the page's target while honoring the
// caller's deadline.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// combineContext derives a context from primary (which carries the CDP target
// values) that is additionally canceled when secondary is.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// jsonEncode safely encodes a value for embedding in a page script.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
