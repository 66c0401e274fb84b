// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/config"
)

// NewClient is a factory function that creates an LLMClient for a single model
// based on its configuration.
func NewClient(cfg config.ModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
}

// NewRouterFromConfig builds the per-tier clients and wires them into a router.
func NewRouterFromConfig(cfg config.OracleConfig, logger *zap.Logger) (*LLMRouter, error) {
	fast, err := NewClient(cfg.Fast, logger)
	if err != nil {
		return nil, fmt.Errorf("building fast tier client: %w", err)
	}
	powerful, err := NewClient(cfg.Powerful, logger)
	if err != nil {
		fast.Close()
		return nil, fmt.Errorf("building powerful tier client: %w", err)
	}
	return NewLLMRouter(logger, fast, powerful)
}
