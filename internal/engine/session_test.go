// internal/engine/session_test.go
package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/engine"
)

func TestNewSessionStartsRunning(t *testing.T) {
	s := engine.NewSession("click the login button")

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, engine.StatusRunning, s.Status())
	assert.False(t, s.Status().Terminal())
	assert.Zero(t, s.Steps())
}

func TestSessionTransitionIsSticky(t *testing.T) {
	s := engine.NewSession("cmd")

	require.True(t, s.Transition(engine.StatusCancelled))
	assert.Equal(t, engine.StatusCancelled, s.Status())

	// Terminal states never change again.
	assert.False(t, s.Transition(engine.StatusSatisfied))
	assert.False(t, s.Transition(engine.StatusFailed))
	assert.Equal(t, engine.StatusCancelled, s.Status())
}

func TestSessionStepCounting(t *testing.T) {
	s := engine.NewSession("cmd")

	assert.Equal(t, 1, s.BeginStep())
	assert.Equal(t, 2, s.BeginStep())
	assert.Equal(t, 3, s.BeginStep())
	assert.Equal(t, 3, s.Steps())
}

func TestSessionResultSnapshotsState(t *testing.T) {
	s := engine.NewSession("search for widgets")
	s.BeginStep()
	s.RecordAction(schemas.ActionRecord{ID: "a1", Action: schemas.ActionClick})
	s.SetVerdict(schemas.VerificationResult{Satisfied: true, Confidence: 0.9, Reason: "done"})
	s.Transition(engine.StatusSatisfied)

	res := s.Result()
	assert.Equal(t, s.ID(), res.SessionID)
	assert.Equal(t, "search for widgets", res.Command)
	assert.Equal(t, engine.StatusSatisfied, res.Status)
	assert.Equal(t, 1, res.Steps)
	require.NotNil(t, res.Verdict)
	assert.InDelta(t, 0.9, res.Verdict.Confidence, 1e-9)
	require.Len(t, res.History, 1)
	assert.Equal(t, "a1", res.History[0].ID)

	// The returned history is a copy, not a live view.
	res.History[0].ID = "mutated"
	assert.Equal(t, "a1", s.Result().History[0].ID)
}

func TestStatusTerminal(t *testing.T) {
	for _, status := range []engine.Status{
		engine.StatusSatisfied,
		engine.StatusMaxStepsReached,
		engine.StatusCancelled,
		engine.StatusFailed,
	} {
		assert.True(t, status.Terminal(), string(status))
	}
	assert.False(t, engine.StatusRunning.Terminal())
}
