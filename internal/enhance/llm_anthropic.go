package enhance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/contextframeai/contextframe-mcp/internal/config"
)

// anthropicCaller implements Caller against Anthropic's Messages API.
type anthropicCaller struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
}

// NewAnthropicCaller builds a Caller for model, authenticated with apiKey.
func NewAnthropicCaller(apiKey config.Secret, model string, rps float64, burst int) (Caller, error) {
	if !apiKey.IsSet() {
		return nil, fmt.Errorf("enhance: anthropic api key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey.Value()))
	return &anthropicCaller{client: client, model: model, limiter: rate.NewLimiter(rate.Limit(rps), burst)}, nil
}

func (c *anthropicCaller) Complete(ctx context.Context, prompt string, schema []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("enhance: rate limiter: %w", err)
	}

	userPrompt := prompt
	if len(schema) > 0 {
		userPrompt += "\n\nRespond with JSON matching this schema: " + string(schema)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= 3; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<(attempt-1)) * 500 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		resp, err := c.client.Messages.New(ctx, params)
		if err == nil {
			if len(resp.Content) == 0 {
				return "", fmt.Errorf("enhance: empty response from anthropic")
			}
			return resp.Content[0].Text, nil
		}
		lastErr = err
		if !isRetryableAnthropicError(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("enhance: max retries exceeded: %w", lastErr)
}

func isRetryableAnthropicError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}
