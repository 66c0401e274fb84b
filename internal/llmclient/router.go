package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
)

// LLMRouter implements schemas.LLMClient and routes requests to a per-tier
// client based on the request's Tier.
type LLMRouter struct {
	logger  *zap.Logger
	clients map[schemas.ModelTier]schemas.LLMClient
}

// NewLLMRouter creates a new router with the specified clients for each tier.
func NewLLMRouter(logger *zap.Logger, fastClient, powerfulClient schemas.LLMClient) (*LLMRouter, error) {
	if fastClient == nil || powerfulClient == nil {
		return nil, fmt.Errorf("both fast and powerful tier clients must be provided")
	}

	return &LLMRouter{
		logger: logger.Named("llm_router"),
		clients: map[schemas.ModelTier]schemas.LLMClient{
			schemas.TierFast:     fastClient,
			schemas.TierPowerful: powerfulClient,
		},
	}, nil
}

// Generate selects the appropriate client based on the request's Tier. An
// unspecified tier defaults to the powerful model.
func (r *LLMRouter) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	tier := req.Tier
	if tier == "" {
		tier = schemas.TierPowerful
	}

	client, ok := r.clients[tier]
	if !ok {
		return "", fmt.Errorf("no LLM client configured for tier: %s", tier)
	}

	r.logger.Debug("Routing LLM request", zap.String("tier", string(tier)))
	return client.Generate(ctx, req)
}

// Close closes every underlying client, returning the first error seen.
func (r *LLMRouter) Close() error {
	var firstErr error
	seen := make(map[schemas.LLMClient]bool)
	for _, client := range r.clients {
		if seen[client] {
			continue
		}
		seen[client] = true
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
