package enhance

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/contextframeai/contextframe-mcp/internal/config"
)

// openAIEmbedder implements Embedder against OpenAI's embeddings API.
type openAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds an Embedder for model.
func NewOpenAIEmbedder(apiKey config.Secret, model string) (Embedder, error) {
	if !apiKey.IsSet() {
		return nil, fmt.Errorf("enhance: openai api key is required")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &openAIEmbedder{client: openai.NewClient(apiKey.Value()), model: model}, nil
}

func (e *openAIEmbedder) Dimensions() int {
	switch e.model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("enhance: create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("enhance: no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
