// Package enhance implements the LLM enrichment and format-aware
// extraction tool handlers (C12): enhance_context, extract_metadata,
// generate_tags, improve_title, enhance_for_purpose, extract_from_file,
// and batch_extract.
package enhance

import "context"

// Caller is the narrow interface the enhancement tools need from an LLM
// provider: a single structured completion call. Concrete providers
// (OpenAI, Anthropic) are selected by the "provider:model" key in
// config.ProvidersConfig.EnhanceModel.
type Caller interface {
	// Complete sends prompt with an optional JSON schema the model should
	// conform its response to, and returns the raw text response.
	Complete(ctx context.Context, prompt string, schema []byte) (string, error)
}

// Embedder is the narrow interface needed to turn extracted content into a
// vector for dataset storage.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// FieldResult reports the outcome of enhancing a single document field,
// returned in a list by dataset-level (batch) enhancement operations.
type FieldResult struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
}
