package enhance

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/contextframeai/contextframe-mcp/internal/config"
)

// openAICaller implements Caller against OpenAI's chat completions API.
type openAICaller struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAICaller builds a Caller for model, authenticated with apiKey.
// apiKey is never logged or stored outside this struct's client.
func NewOpenAICaller(apiKey config.Secret, model string, rps float64, burst int) (Caller, error) {
	if !apiKey.IsSet() {
		return nil, fmt.Errorf("enhance: openai api key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &openAICaller{
		client:  openai.NewClient(apiKey.Value()),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

func (c *openAICaller) Complete(ctx context.Context, prompt string, schema []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("enhance: rate limiter: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	if len(schema) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Respond with JSON matching this schema: " + string(schema),
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
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
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("enhance: empty response from openai")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
		if !isRetryableOpenAIError(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("enhance: max retries exceeded: %w", lastErr)
}

func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return true
}
