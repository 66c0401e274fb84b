// api/schemas/interfaces.go
package schemas

import "context"

// ModelTier selects a large language model by a speed/capability preference
// rather than by name, so callers stay decoupled from provider catalogs.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Prefers a faster, less capable model.
	TierPowerful ModelTier = "powerful" // Prefers a more capable, slower model.
)

// GenerationOptions tunes the text generation process.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, asks the model to emit valid JSON.
	MaxTokens       int     `json:"max_tokens"`        // Hard cap on completion length. Zero means provider default.
}

// GenerationRequest is a complete request to an LLM: the system and user
// prompts, the desired tier, and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient abstracts a large language model provider. The planning and
// verification oracles are consumed exclusively through this interface.
type LLMClient interface {
	// Generate produces a text completion for the request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close releases any resources held by the client.
	Close() error
}
