// internal/llmclient/openai_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/config"
)

// OpenAIClient implements schemas.LLMClient against the OpenAI chat
// completions API (and compatible endpoints).
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	config     config.ModelConfig
}

// -- OpenAI API request/response structures (internal to this file) --

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequestPayload struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponsePayload struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient initializes the client.
func NewOpenAIClient(cfg config.ModelConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openAI API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}

	return &OpenAIClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		config:   cfg,
		limiter:  newModelLimiter(cfg.RequestsPerMinute),
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.openai"),
	}, nil
}

// Generate sends the prompts to the chat completions endpoint and returns the
// generated content, retrying transient failures with exponential backoff.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var responseContent string

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		startTime := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		duration := time.Since(startTime)

		if err != nil {
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var responsePayload openAIResponsePayload
		if err := json.Unmarshal(respBody, &responsePayload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}

		if len(responsePayload.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("openAI API returned no choices"))
		}

		choice := responsePayload.Choices[0]
		if choice.Message.Content == "" {
			if choice.FinishReason == "content_filter" {
				return backoff.Permanent(fmt.Errorf("openAI API blocked the request (Reason: %s)", choice.FinishReason))
			}
			return fmt.Errorf("openAI API returned empty content (Reason: %s)", choice.FinishReason)
		}

		c.logger.Info("LLM generation complete (OpenAI)",
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", responsePayload.Usage.PromptTokens),
			zap.Int("completion_tokens", responsePayload.Usage.CompletionTokens),
			zap.Int("total_tokens", responsePayload.Usage.TotalTokens),
		)

		responseContent = choice.Message.Content
		return nil
	}

	if err = backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}

	return responseContent, nil
}

// Close releases idle connections held by the underlying transport.
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *OpenAIClient) buildRequestPayload(req schemas.GenerationRequest) openAIRequestPayload {
	payload := openAIRequestPayload{
		Model: c.config.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Options.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if req.Options.MaxTokens > 0 {
		payload.MaxTokens = req.Options.MaxTokens
	}
	if req.Options.ForceJSONFormat {
		payload.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}
	return payload
}

func (c *OpenAIClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("OpenAI API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("openAI API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient errors, retry.
	default:
		return backoff.Permanent(err)
	}
}
