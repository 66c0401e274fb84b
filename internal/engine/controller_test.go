// internal/engine/controller_test.go
package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/engine"
	"github.com/pagepilot-ai/pagepilot/internal/oracle"
)

type scriptedPlanner struct {
	calls    int
	contexts []oracle.StepContext
	actions  []schemas.Action
	err      error
}

func (p *scriptedPlanner) PlanNext(_ context.Context, sc oracle.StepContext, _ *schemas.Snapshot) (schemas.Action, error) {
	p.calls++
	p.contexts = append(p.contexts, sc)
	if p.err != nil {
		return schemas.Action{}, p.err
	}
	action := p.actions[0]
	if len(p.actions) > 1 {
		p.actions = p.actions[1:]
	}
	return action, nil
}

type scriptedVerifier struct {
	calls    int
	verdicts []schemas.VerificationResult
}

func (v *scriptedVerifier) Verify(_ context.Context, _ string, _ *schemas.Snapshot) schemas.VerificationResult {
	v.calls++
	verdict := v.verdicts[0]
	if len(v.verdicts) > 1 {
		v.verdicts = v.verdicts[1:]
	}
	return verdict
}

type scriptedExecutor struct {
	calls    int
	executed []schemas.Action
	err      error
}

func (e *scriptedExecutor) Execute(_ context.Context, _ *html.Node, action schemas.Action) error {
	e.calls++
	e.executed = append(e.executed, action)
	return e.err
}

func clickAction(selector string) schemas.Action {
	return schemas.Action{
		Type:    schemas.ActionClick,
		Locator: schemas.Locator{Selector: selector},
	}
}

func newTestController(planner engine.Planner, verifier engine.Verifier, executor engine.ActionExecutor, cfg engine.Config) *engine.Controller {
	observer := &fakeObserver{snap: schemas.EmptySnapshot()}
	registry := engine.NewRegistry(observer, time.Second, zap.NewNop())
	return engine.NewController(cfg, registry, planner, verifier, executor, zap.NewNop())
}

func TestRunSatisfiedStopsEarly(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#login")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: true, Confidence: 0.95, Reason: "logged in"},
	}}
	executor := &scriptedExecutor{}
	c := newTestController(planner, verifier, executor, engine.Config{
		MaxSteps:            5,
		ConfidenceThreshold: 0.7,
	})

	result := c.Run(context.Background(), "click the login button")

	assert.Equal(t, engine.StatusSatisfied, result.Status)
	assert.Equal(t, 1, result.Steps)
	assert.Equal(t, 1, planner.calls)
	assert.Equal(t, 1, executor.calls)
	require.NotNil(t, result.Verdict)
	assert.True(t, result.Verdict.Satisfied)
	require.Len(t, result.History, 1)
	assert.Equal(t, "ok", result.History[0].Status)
}

func TestRunExhaustsStepBudget(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#next")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: false, Confidence: 0.3, Reason: "not there yet"},
	}}
	executor := &scriptedExecutor{}
	c := newTestController(planner, verifier, executor, engine.Config{
		MaxSteps:            3,
		ConfidenceThreshold: 0.7,
	})

	result := c.Run(context.Background(), "finish the wizard")

	assert.Equal(t, engine.StatusMaxStepsReached, result.Status)
	assert.Equal(t, 3, result.Steps)
	assert.Equal(t, 3, planner.calls)
	assert.Equal(t, 3, verifier.calls)
	assert.Len(t, result.History, 3)
}

func TestRunConfidenceBelowThresholdKeepsLooping(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#a")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: true, Confidence: 0.5, Reason: "maybe"},
		{Satisfied: true, Confidence: 0.85, Reason: "confirmed"},
	}}
	executor := &scriptedExecutor{}
	c := newTestController(planner, verifier, executor, engine.Config{
		MaxSteps:            5,
		ConfidenceThreshold: 0.7,
	})

	result := c.Run(context.Background(), "submit the form")

	assert.Equal(t, engine.StatusSatisfied, result.Status)
	assert.Equal(t, 2, result.Steps)
	assert.Equal(t, 2, verifier.calls)
}

func TestRunNavigationShortcutSkipsOracles(t *testing.T) {
	planner := &scriptedPlanner{err: errors.New("planner must not be called")}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{{}}}
	executor := &scriptedExecutor{}
	c := newTestController(planner, verifier, executor, engine.Config{
		MaxSteps:            5,
		ConfidenceThreshold: 0.7,
	})

	result := c.Run(context.Background(), "go to example.com")

	assert.Equal(t, engine.StatusSatisfied, result.Status)
	assert.Equal(t, 1, result.Steps)
	assert.Zero(t, planner.calls)
	assert.Zero(t, verifier.calls)
	require.NotNil(t, result.Verdict)
	assert.True(t, result.Verdict.Satisfied)
	require.Len(t, executor.executed, 1)
	assert.Equal(t, schemas.ActionNavigate, executor.executed[0].Type)
	assert.Equal(t, "example.com", executor.executed[0].Value)
	require.Len(t, result.History, 1)
	assert.Equal(t, "example.com", result.History[0].URL)
	assert.Empty(t, result.History[0].Value)
}

func TestRunPlannerFailureConsumesStep(t *testing.T) {
	planErr := errors.New("model overloaded")
	planner := &scriptedPlanner{err: planErr}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{{}}}
	executor := &scriptedExecutor{}
	c := newTestController(planner, verifier, executor, engine.Config{
		MaxSteps:            2,
		ConfidenceThreshold: 0.7,
	})

	result := c.Run(context.Background(), "do something")

	assert.Equal(t, engine.StatusMaxStepsReached, result.Status)
	assert.Equal(t, 2, result.Steps)
	assert.Equal(t, 2, planner.calls)
	assert.Zero(t, executor.calls)
	assert.Zero(t, verifier.calls)
	assert.ErrorIs(t, result.LastErr, planErr)
	require.NotNil(t, result.Verdict)
	assert.Contains(t, result.Verdict.Reason, "model overloaded")
}

func TestRunExecutorFailureConsumesStepAndRecords(t *testing.T) {
	execErr := errors.New("element vanished")
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#gone")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{{}}}
	executor := &scriptedExecutor{err: execErr}
	c := newTestController(planner, verifier, executor, engine.Config{
		MaxSteps:            2,
		ConfidenceThreshold: 0.7,
	})

	result := c.Run(context.Background(), "click the ghost")

	assert.Equal(t, engine.StatusMaxStepsReached, result.Status)
	assert.Equal(t, 2, result.Steps)
	assert.Zero(t, verifier.calls)
	assert.ErrorIs(t, result.LastErr, execErr)
	require.Len(t, result.History, 2)
	assert.Equal(t, "failed", result.History[0].Status)
	assert.Equal(t, "element vanished", result.History[0].Error)
}

func TestRunHistoryRedactsCredentials(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{{
		Type:    schemas.ActionInput,
		Locator: schemas.Locator{Selector: "#password"},
		Value:   "hunter2",
	}}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: false, Confidence: 0.2},
		{Satisfied: true, Confidence: 0.9},
	}}
	executor := &scriptedExecutor{}
	c := newTestController(planner, verifier, executor, engine.Config{
		MaxSteps:            2,
		ConfidenceThreshold: 0.7,
	})

	result := c.Run(context.Background(), "log in")

	require.Len(t, result.History, 2)
	assert.Equal(t, schemas.RedactedValue, result.History[0].Value)

	// The redacted record is what the planner sees on the next cycle.
	require.Len(t, planner.contexts, 2)
	require.Len(t, planner.contexts[1].History, 1)
	assert.Equal(t, schemas.RedactedValue, planner.contexts[1].History[0].Value)

	// The executor still received the real value.
	require.Len(t, executor.executed, 2)
	assert.Equal(t, "hunter2", executor.executed[0].Value)
}

func TestRunPlannerReceivesStepContext(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#a")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: false, Confidence: 0.4, Reason: "partial"},
		{Satisfied: true, Confidence: 0.9, Reason: "done"},
	}}
	c := newTestController(planner, verifier, &scriptedExecutor{}, engine.Config{
		MaxSteps:            4,
		ConfidenceThreshold: 0.7,
	})

	c.Run(context.Background(), "accept the cookies")

	require.Len(t, planner.contexts, 2)
	first, second := planner.contexts[0], planner.contexts[1]
	assert.Equal(t, "accept the cookies", first.Command)
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, 4, first.MaxSteps)
	assert.Empty(t, first.History)
	assert.Nil(t, first.LastVerdict)

	assert.Equal(t, 2, second.Step)
	assert.Len(t, second.History, 1)
	require.NotNil(t, second.LastVerdict)
	assert.Equal(t, "partial", second.LastVerdict.Reason)
}

func TestRunCancelStopsSession(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#a")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: false, Confidence: 0},
	}}
	c := newTestController(planner, verifier, &scriptedExecutor{}, engine.Config{
		MaxSteps:            50,
		ConfidenceThreshold: 0.7,
		SettleDelay:         20 * time.Millisecond,
	})

	done := make(chan engine.Result, 1)
	go func() {
		done <- c.Run(context.Background(), "loop forever")
	}()
	time.Sleep(50 * time.Millisecond)
	c.Cancel()

	select {
	case result := <-done:
		assert.Equal(t, engine.StatusCancelled, result.Status)
		assert.Less(t, result.Steps, 50)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRunParentCancellationIsCancelled(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#a")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: false, Confidence: 0},
	}}
	c := newTestController(planner, verifier, &scriptedExecutor{}, engine.Config{
		MaxSteps:            50,
		ConfidenceThreshold: 0.7,
		SettleDelay:         20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := c.Run(ctx, "loop forever")
	assert.Equal(t, engine.StatusCancelled, result.Status)
}

func TestRunParentDeadlineIsFailed(t *testing.T) {
	planner := &scriptedPlanner{actions: []schemas.Action{clickAction("#a")}}
	verifier := &scriptedVerifier{verdicts: []schemas.VerificationResult{
		{Satisfied: false, Confidence: 0},
	}}
	c := newTestController(planner, verifier, &scriptedExecutor{}, engine.Config{
		MaxSteps:            50,
		ConfidenceThreshold: 0.7,
		SettleDelay:         20 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	result := c.Run(ctx, "loop forever")
	assert.Equal(t, engine.StatusFailed, result.Status)
	assert.ErrorIs(t, result.LastErr, context.DeadlineExceeded)
}
