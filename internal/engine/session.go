// internal/engine/session.go

// Package engine runs the command loop: observe the page, plan one action,
// execute it, let the page settle, re-observe, and verify, until the command
// is satisfied with enough confidence or the step budget runs out.
package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
)

// Status is the lifecycle state of a command session.
type Status string

const (
	StatusRunning         Status = "RUNNING"
	StatusSatisfied       Status = "SATISFIED"
	StatusMaxStepsReached Status = "MAX_STEPS_REACHED"
	StatusCancelled       Status = "CANCELLED"
	StatusFailed          Status = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Result is the final outcome of a command session.
type Result struct {
	SessionID string
	Command   string
	Status    Status
	Steps     int
	// Verdict is the last verification result, if any cycle completed.
	Verdict *schemas.VerificationResult
	// History lists every action attempted, in order.
	History []schemas.ActionRecord
	// LastErr is the error from the most recent failed cycle, if any.
	LastErr error
}

// Session tracks the mutable state of one command run. Terminal states are
// sticky: once reached, no transition changes them.
type Session struct {
	id      string
	command string

	mu      sync.Mutex
	status  Status
	steps   int
	history []schemas.ActionRecord
	verdict *schemas.VerificationResult
	lastErr error
}

// NewSession starts a session in the running state.
func NewSession(command string) *Session {
	return &Session{
		id:      uuid.NewString(),
		command: command,
		status:  StatusRunning,
	}
}

// ID returns the session identifier, also used as the observation key.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Transition moves the session into next. It reports false without changing
// anything when the session is already terminal.
func (s *Session) Transition(next Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return false
	}
	s.status = next
	return true
}

// BeginStep consumes one step of the budget and returns the step number,
// starting at 1.
func (s *Session) BeginStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps++
	return s.steps
}

// Steps returns how many steps have been consumed.
func (s *Session) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// RecordAction appends one executed (or attempted) action to the history.
func (s *Session) RecordAction(rec schemas.ActionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
}

// SetVerdict stores the latest verification result.
func (s *Session) SetVerdict(v schemas.VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdict = &v
}

// SetLastErr stores the most recent cycle error.
func (s *Session) SetLastErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// Result snapshots the session into its final form.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]schemas.ActionRecord, len(s.history))
	copy(history, s.history)
	return Result{
		SessionID: s.id,
		Command:   s.command,
		Status:    s.status,
		Steps:     s.steps,
		Verdict:   s.verdict,
		History:   history,
		LastErr:   s.lastErr,
	}
}
