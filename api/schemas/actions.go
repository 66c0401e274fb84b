// api/schemas/actions.go
package schemas

import (
	"fmt"
	"strings"
	"time"
)

// ActionType enumerates the effects the engine can apply to a live page.
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionClick    ActionType = "click"
	ActionInput    ActionType = "type"
	ActionScroll   ActionType = "scroll"
)

// Locator identifies a target element by exactly one strategy. A zero Locator
// is only legal for whole-document scrolls.
type Locator struct {
	Selector string `json:"selector,omitempty"`
	XPath    string `json:"xpath,omitempty"`
}

// IsZero reports whether no strategy is set.
func (l Locator) IsZero() bool {
	return l.Selector == "" && l.XPath == ""
}

// String returns the raw locator text, preferring the selector strategy. It is
// what fuzzy resolution scans for and what the action log records.
func (l Locator) String() string {
	if l.Selector != "" {
		return l.Selector
	}
	return l.XPath
}

// ScrollDelta is the scroll distance in CSS pixels.
type ScrollDelta struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Action is the single next step chosen by the planning oracle.
type Action struct {
	Type      ActionType  `json:"type"`
	Locator   Locator     `json:"locator,omitzero"`
	Value     string      `json:"value,omitempty"`
	Delta     ScrollDelta `json:"delta,omitzero"`
	Rationale string      `json:"rationale,omitempty"`
}

// Validate enforces the structural rules of the action vocabulary: navigate
// needs a URL, click and type need exactly one locator strategy, and scroll
// may omit the locator entirely (whole-document fallback).
func (a Action) Validate() error {
	switch a.Type {
	case ActionNavigate:
		if strings.TrimSpace(a.Value) == "" {
			return fmt.Errorf("navigate action requires a url value")
		}
		return nil
	case ActionClick, ActionInput:
		if a.Locator.IsZero() {
			return fmt.Errorf("%s action requires a locator", a.Type)
		}
		if a.Locator.Selector != "" && a.Locator.XPath != "" {
			return fmt.Errorf("%s action must use exactly one locator strategy", a.Type)
		}
		if a.Type == ActionInput && a.Value == "" {
			return fmt.Errorf("type action requires a value")
		}
		return nil
	case ActionScroll:
		if a.Locator.Selector != "" && a.Locator.XPath != "" {
			return fmt.Errorf("scroll action must use at most one locator strategy")
		}
		return nil
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

// RedactedValue replaces typed values bound for credential fields before they
// reach the action log.
const RedactedValue = "REDACTED"

// ActionRecord is one append-only entry of the action log.
type ActionRecord struct {
	ID        string     `json:"id"`
	Action    ActionType `json:"action"`
	Locator   string     `json:"locator,omitempty"`
	Value     string     `json:"value,omitempty"`
	URL       string     `json:"url,omitempty"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// VerificationResult is the verification oracle's judgement for one step. It
// is produced once per cycle and never mutated.
type VerificationResult struct {
	Satisfied  bool    `json:"satisfied"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
