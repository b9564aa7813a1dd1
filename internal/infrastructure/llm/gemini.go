package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"HNFilter/internal/config"
	"HNFilter/internal/ports"
)

// GeminiClient implements ports.Completer through the Gemini SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ ports.Completer = (*GeminiClient)(nil)

// NewGeminiClient creates an SDK client with the configured API key.
func NewGeminiClient(ctx context.Context, cfg config.OracleConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// Complete sends prompt as a single text content and returns the response text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("get text from result: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// classifyGeminiError maps SDK errors onto the shared sentinels. The SDK only
// exposes the HTTP status through the error text.
func classifyGeminiError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	throttled := strings.Contains(lower, "429") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "resource exhausted") ||
		strings.Contains(lower, "too many requests")

	switch {
	case throttled && looksLikeQuota(msg):
		return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
	case throttled:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return fmt.Errorf("generate content: %w", err)
	}
}
