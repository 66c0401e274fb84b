// internal/executor/executor.go

// Package executor applies planned actions to the live page. Locators are
// resolved against the observed document first, then re-synthesized into a
// fresh selector before touching the page, so stale or fuzzy locators still
// land on the element the planner meant.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/actionlog"
	"github.com/pagepilot-ai/pagepilot/internal/browser"
	"github.com/pagepilot-ai/pagepilot/internal/dom"
)

const (
	statusOK     = "ok"
	statusFailed = "failed"
)

// Executor drives a view with validated actions and logs every attempt.
type Executor struct {
	view          browser.View
	log           *actionlog.Log
	actionTimeout time.Duration
	logger        *zap.Logger
}

// New builds an executor over the view. actionTimeout bounds each individual
// page action; zero means no bound.
func New(view browser.View, log *actionlog.Log, actionTimeout time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		view:          view,
		log:           log,
		actionTimeout: actionTimeout,
		logger:        logger.Named("executor"),
	}
}

// Execute validates and applies one action. doc is the parse tree of the most
// recent observation; click, type, and targeted scroll actions resolve their
// locators against it. Every attempt is recorded in the action log, including
// failures.
func (e *Executor) Execute(ctx context.Context, doc *html.Node, action schemas.Action) error {
	if err := action.Validate(); err != nil {
		return err
	}

	if e.actionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.actionTimeout)
		defer cancel()
	}

	var err error
	switch action.Type {
	case schemas.ActionNavigate:
		err = e.navigate(ctx, &action)
	case schemas.ActionClick:
		err = e.click(ctx, doc, action)
	case schemas.ActionInput:
		err = e.typeValue(ctx, doc, action)
	case schemas.ActionScroll:
		err = e.scroll(ctx, doc, action)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Type)
	}

	e.record(ctx, action, err)
	return err
}

func (e *Executor) navigate(ctx context.Context, action *schemas.Action) error {
	normalized, err := NormalizeURL(action.Value)
	if err != nil {
		return err
	}
	action.Value = normalized

	e.logger.Info("Executing navigate.", zap.String("url", normalized))
	return e.view.Navigate(ctx, normalized)
}

func (e *Executor) click(ctx context.Context, doc *html.Node, action schemas.Action) error {
	selector, err := e.resolveSelector(doc, action.Locator)
	if err != nil {
		return err
	}
	e.logger.Info("Executing click.", zap.String("selector", selector))
	return e.view.Click(ctx, selector)
}

func (e *Executor) typeValue(ctx context.Context, doc *html.Node, action schemas.Action) error {
	selector, err := e.resolveSelector(doc, action.Locator)
	if err != nil {
		return err
	}
	e.logger.Info("Executing type.", zap.String("selector", selector))
	return e.view.SetValue(ctx, selector, action.Value)
}

func (e *Executor) scroll(ctx context.Context, doc *html.Node, action schemas.Action) error {
	selector := ""
	if !action.Locator.IsZero() {
		resolved, err := e.resolveSelector(doc, action.Locator)
		if err != nil {
			// A scroll target that cannot be found degrades to scrolling the
			// whole document rather than failing the step.
			e.logger.Debug("Scroll target unresolved; scrolling document.",
				zap.String("locator", action.Locator.String()))
		} else {
			selector = resolved
		}
	}
	e.logger.Info("Executing scroll.",
		zap.String("selector", selector),
		zap.Float64("dx", action.Delta.X),
		zap.Float64("dy", action.Delta.Y),
	)
	return e.view.ScrollBy(ctx, selector, action.Delta.X, action.Delta.Y)
}

// resolveSelector maps a locator onto the observed document and returns a
// selector synthesized fresh from the resolved element. The planner's own
// selector is never trusted against the live page directly.
func (e *Executor) resolveSelector(doc *html.Node, loc schemas.Locator) (string, error) {
	n, err := dom.Resolve(doc, loc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLocatorUnresolved, err)
	}
	selector := dom.Synthesize(doc, n)
	if selector == "" {
		return "", fmt.Errorf("%w: could not synthesize selector for %q", ErrLocatorUnresolved, loc.String())
	}
	return selector, nil
}

// record appends the attempt to the action log. Logging failures are reported
// but never override the action's own outcome.
func (e *Executor) record(ctx context.Context, action schemas.Action, actionErr error) {
	if e.log == nil {
		return
	}

	status := statusOK
	if actionErr != nil {
		status = statusFailed
	}

	url := action.Value
	if action.Type != schemas.ActionNavigate {
		if current, err := e.view.Location(ctx); err == nil {
			url = current
		} else {
			url = ""
		}
	}

	if _, err := e.log.Record(action, url, status, actionErr); err != nil {
		e.logger.Warn("Failed to write action record.", zap.Error(err))
	}
}
