// internal/oracle/verifier.go
package oracle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/llmutil"
)

// Verifier asks the fast model tier whether the command is satisfied.
type Verifier struct {
	client schemas.LLMClient
	logger *zap.Logger
}

// NewVerifier wires a verifier to an LLM client.
func NewVerifier(client schemas.LLMClient, logger *zap.Logger) *Verifier {
	return &Verifier{
		client: client,
		logger: logger.Named("oracle.verifier"),
	}
}

// Verify judges the post-action page state against the command. It never
// fails: generation or parse errors degrade to an unsatisfied verdict with
// zero confidence, which keeps the loop running instead of crashing it.
func (v *Verifier) Verify(ctx context.Context, command string, snap *schemas.Snapshot) schemas.VerificationResult {
	snapJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errorVerdict(err)
	}

	prompt := fmt.Sprintf("Command:\n%s\n\nPage snapshot after the last action:\n%s\n", command, snapJSON)

	response, err := v.client.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: verifierSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options: schemas.GenerationOptions{
			Temperature:     0.0,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		v.logger.Warn("Verifier generation failed.", zap.Error(err))
		return errorVerdict(err)
	}

	result, err := llmutil.ParseJSONResponse[schemas.VerificationResult](response)
	if err != nil {
		v.logger.Warn("Verifier response could not be parsed.",
			zap.Error(err), zap.String("response", truncateForLog(response)))
		return errorVerdict(err)
	}

	verdict := *result
	verdict.Confidence = clamp01(verdict.Confidence)

	v.logger.Info("Verification verdict.",
		zap.Bool("satisfied", verdict.Satisfied),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("reason", verdict.Reason),
	)
	return verdict
}

func errorVerdict(err error) schemas.VerificationResult {
	return schemas.VerificationResult{
		Satisfied:  false,
		Confidence: 0,
		Reason:     fmt.Sprintf("Error: %v", err),
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
