// internal/engine/controller.go
package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/actionlog"
	"github.com/pagepilot-ai/pagepilot/internal/oracle"
)

// Planner chooses the next action for a command given the page snapshot.
type Planner interface {
	PlanNext(ctx context.Context, sc oracle.StepContext, snap *schemas.Snapshot) (schemas.Action, error)
}

// Verifier judges whether the command is satisfied by the page state. It
// never fails; errors degrade to unsatisfied verdicts.
type Verifier interface {
	Verify(ctx context.Context, command string, snap *schemas.Snapshot) schemas.VerificationResult
}

// ActionExecutor applies one action to the live page, resolving locators
// against the observed document.
type ActionExecutor interface {
	Execute(ctx context.Context, doc *html.Node, action schemas.Action) error
}

// Config tunes the command loop.
type Config struct {
	// MaxSteps is the hard budget of cycles per command. Failed and
	// unsatisfied cycles both consume a step.
	MaxSteps int
	// ConfidenceThreshold gates success: a satisfied verdict below it keeps
	// the loop running.
	ConfidenceThreshold float64
	// SettleDelay is the pause between acting and re-observing.
	SettleDelay time.Duration
}

// Controller runs command sessions over a fixed set of collaborators.
type Controller struct {
	cfg      Config
	registry *Registry
	planner  Planner
	verifier Verifier
	executor ActionExecutor
	logger   *zap.Logger

	cancelled atomic.Bool
	cancelRun atomic.Pointer[context.CancelFunc]
}

// NewController wires a controller.
func NewController(cfg Config, registry *Registry, planner Planner, verifier Verifier, executor ActionExecutor, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: registry,
		planner:  planner,
		verifier: verifier,
		executor: executor,
		logger:   logger.Named("engine.controller"),
	}
}

// Cancel stops the active run at the next step boundary or blocking wait,
// whichever comes first. Safe to call at any time, from any goroutine.
func (c *Controller) Cancel() {
	c.cancelled.Store(true)
	if cancel := c.cancelRun.Load(); cancel != nil {
		(*cancel)()
	}
}

// Run executes one command to a terminal status. Each cycle observes the
// page, plans one action, executes it, waits for the page to settle,
// re-observes, and verifies. Every cycle consumes exactly one step of the
// budget, whether it succeeded, failed, or merely fell short of the
// confidence threshold.
func (c *Controller) Run(ctx context.Context, command string) Result {
	session := NewSession(command)
	logger := c.logger.With(zap.String("session_id", session.ID()))

	runCtx, cancel := context.WithCancel(ctx)
	c.cancelRun.Store(&cancel)
	defer func() {
		c.cancelRun.Store(nil)
		cancel()
	}()

	logger.Info("Starting command session.",
		zap.String("command", command),
		zap.Int("max_steps", c.cfg.MaxSteps),
		zap.Float64("confidence_threshold", c.cfg.ConfidenceThreshold),
	)

	navURL, isNavCommand := parseNavigationCommand(command)

	for session.Steps() < c.cfg.MaxSteps {
		if done := c.checkInterrupted(runCtx, session, logger); done {
			break
		}

		step := session.BeginStep()
		stepLogger := logger.With(zap.Int("step", step))

		observation := c.registry.Observe(runCtx, session.ID())

		action, planErr := c.nextAction(runCtx, session, step, isNavCommand, navURL, observation)
		if planErr != nil {
			stepLogger.Warn("Planning failed; step consumed.", zap.Error(planErr))
			session.SetLastErr(planErr)
			session.SetVerdict(schemas.VerificationResult{
				Satisfied: false,
				Reason:    "Error: " + planErr.Error(),
			})
			continue
		}

		execErr := c.executor.Execute(runCtx, observation.Doc, action)
		session.RecordAction(historyRecord(action, execErr))
		if execErr != nil {
			stepLogger.Warn("Action execution failed; step consumed.", zap.Error(execErr))
			session.SetLastErr(execErr)
			session.SetVerdict(schemas.VerificationResult{
				Satisfied: false,
				Reason:    "Error: " + execErr.Error(),
			})
			continue
		}

		if isNavCommand && step == 1 {
			// A pure navigation command is done once the page accepted it.
			// There is nothing for the verifier to judge.
			session.SetVerdict(schemas.VerificationResult{
				Satisfied:  true,
				Confidence: 1,
				Reason:     "navigation completed",
			})
			session.Transition(StatusSatisfied)
			break
		}

		if done := c.settle(runCtx, session, logger); done {
			break
		}

		postObservation := c.registry.Observe(runCtx, session.ID())
		verdict := c.verifier.Verify(runCtx, command, postObservation.Snapshot)
		session.SetVerdict(verdict)
		session.SetLastErr(nil)

		stepLogger.Info("Cycle complete.",
			zap.Bool("satisfied", verdict.Satisfied),
			zap.Float64("confidence", verdict.Confidence),
		)

		if verdict.Satisfied && verdict.Confidence >= c.cfg.ConfidenceThreshold {
			session.Transition(StatusSatisfied)
			break
		}
	}

	if !session.Status().Terminal() {
		session.Transition(StatusMaxStepsReached)
	}

	result := session.Result()
	logger.Info("Command session finished.",
		zap.String("status", string(result.Status)),
		zap.Int("steps", result.Steps),
	)
	return result
}

// nextAction picks the action for this cycle. Pure navigation commands are
// synthesized locally on the first step; everything else goes to the planner.
func (c *Controller) nextAction(ctx context.Context, session *Session, step int, isNavCommand bool, navURL string, observation Observation) (schemas.Action, error) {
	if isNavCommand && step == 1 {
		return schemas.Action{
			Type:      schemas.ActionNavigate,
			Value:     navURL,
			Rationale: "command is a plain navigation request",
		}, nil
	}

	result := session.Result()
	return c.planner.PlanNext(ctx, oracle.StepContext{
		Command:     session.command,
		Step:        step,
		MaxSteps:    c.cfg.MaxSteps,
		History:     result.History,
		LastVerdict: result.Verdict,
	}, observation.Snapshot)
}

// settle pauses between acting and re-observing. It reports true when the run
// was interrupted during the wait.
func (c *Controller) settle(ctx context.Context, session *Session, logger *zap.Logger) bool {
	if c.cfg.SettleDelay <= 0 {
		return c.checkInterrupted(ctx, session, logger)
	}
	timer := time.NewTimer(c.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return c.checkInterrupted(ctx, session, logger)
	case <-ctx.Done():
		return c.checkInterrupted(ctx, session, logger)
	}
}

// checkInterrupted maps cancellation and context failure onto terminal
// statuses. Explicit cancellation and parent cancellation both end the
// session as cancelled; a blown parent deadline is a failure.
func (c *Controller) checkInterrupted(ctx context.Context, session *Session, logger *zap.Logger) bool {
	if c.cancelled.Load() {
		logger.Info("Session cancelled.")
		session.Transition(StatusCancelled)
		return true
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Session deadline exceeded.")
			session.SetLastErr(err)
			session.Transition(StatusFailed)
		} else {
			logger.Info("Session context cancelled.")
			session.Transition(StatusCancelled)
		}
		return true
	}
	return false
}

// historyRecord builds the session-history entry for an attempted action.
// Credential values are redacted here too, because history flows back into
// planner prompts.
func historyRecord(action schemas.Action, execErr error) schemas.ActionRecord {
	rec := schemas.ActionRecord{
		ID:        uuid.NewString(),
		Action:    action.Type,
		Locator:   action.Locator.String(),
		Value:     action.Value,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}
	if action.Type == schemas.ActionNavigate {
		rec.URL = action.Value
		rec.Value = ""
	}
	if action.Type == schemas.ActionInput && actionlog.IsCredentialLocator(rec.Locator) {
		rec.Value = schemas.RedactedValue
	}
	if execErr != nil {
		rec.Status = "failed"
		rec.Error = execErr.Error()
	}
	return rec
}
