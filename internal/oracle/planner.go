// internal/oracle/planner.go

// Package oracle holds the two LLM-backed judgement components of the engine:
// the planner, which picks the next action, and the verifier, which decides
// whether the command has been satisfied. Both see the page only through
// snapshots and communicate only via the LLMClient interface.
package oracle

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StepContext is everything the planner knows beyond the current snapshot.
type StepContext struct {
	Command     string                      `json:"command"`
	Step        int                         `json:"step"`
	MaxSteps    int                         `json:"max_steps"`
	History     []schemas.ActionRecord      `json:"history,omitempty"`
	LastVerdict *schemas.VerificationResult `json:"last_verdict,omitempty"`
}

// Planner asks the powerful model tier for the next action.
type Planner struct {
	client schemas.LLMClient
	logger *zap.Logger
}

// NewPlanner wires a planner to an LLM client.
func NewPlanner(client schemas.LLMClient, logger *zap.Logger) *Planner {
	return &Planner{
		client: client,
		logger: logger.Named("oracle.planner"),
	}
}

// PlanNext returns the single next action for the command given the current
// page snapshot. Responses that drift from the expected shape are normalized;
// responses that yield no valid action are errors.
func (p *Planner) PlanNext(ctx context.Context, sc StepContext, snap *schemas.Snapshot) (schemas.Action, error) {
	prompt, err := buildPlannerPrompt(sc, snap)
	if err != nil {
		return schemas.Action{}, err
	}

	response, err := p.client.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: plannerSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			Temperature:     0.2,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return schemas.Action{}, fmt.Errorf("planner generation failed: %w", err)
	}

	action, err := NormalizeAction(response)
	if err != nil {
		p.logger.Warn("Planner response could not be normalized.",
			zap.Error(err), zap.String("response", truncateForLog(response)))
		return schemas.Action{}, err
	}

	p.logger.Info("Planned next action.",
		zap.String("type", string(action.Type)),
		zap.String("locator", action.Locator.String()),
		zap.String("rationale", action.Rationale),
	)
	return action, nil
}

func buildPlannerPrompt(sc StepContext, snap *schemas.Snapshot) (string, error) {
	contextJSON, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step context: %w", err)
	}
	snapJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return fmt.Sprintf("Task context:\n%s\n\nCurrent page snapshot:\n%s\n", contextJSON, snapJSON), nil
}

func truncateForLog(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
