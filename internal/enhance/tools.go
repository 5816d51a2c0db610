package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// Service implements the six LLM enrichment tool handlers (C12): five
// single-document handlers and BatchEnhance over them. Each single-document
// handler shares the lookup -> invoke -> validate -> merge -> write-back
// pattern; only the field-specific prompt, schema, and merge step differ.
type Service struct {
	ds     dataset.Dataset
	caller Caller
}

// NewService wires a Service around ds and caller. caller may be nil, in
// which case every handler reports ProviderError rather than panicking —
// this happens when ProvidersConfig.Enabled() is false at startup.
func NewService(ds dataset.Dataset, caller Caller) *Service {
	return &Service{ds: ds, caller: caller}
}

func (s *Service) lookup(ctx context.Context, documentID string) (dataset.Record, error) {
	if documentID == "" {
		return dataset.Record{}, mcp.InvalidParamsError("document_id is required")
	}
	rec, err := s.ds.GetByUUID(ctx, documentID)
	if err != nil {
		return dataset.Record{}, mcp.InvalidParamsError("document %q not found: %v", documentID, err)
	}
	return rec, nil
}

func (s *Service) writeBack(ctx context.Context, rec dataset.Record) error {
	rec.Metadata.UpdatedAt = time.Now().UTC()
	if err := s.ds.UpdateRecord(ctx, rec); err != nil {
		return mcp.NewToolError(mcp.CodeDatasetError, fmt.Sprintf("failed to write back document %s: %v", rec.UUID, err), err)
	}
	return nil
}

func (s *Service) complete(ctx context.Context, prompt, schema string) (string, error) {
	if s.caller == nil {
		return "", mcp.NewToolError(mcp.CodeProviderError, "no LLM provider configured", nil)
	}
	out, err := s.caller.Complete(ctx, prompt, []byte(schema))
	if err != nil {
		return "", mcp.NewToolError(mcp.CodeProviderError, fmt.Sprintf("LLM call failed: %v", err), err)
	}
	return out, nil
}

// EnhanceContext handles the "enhance_context" tool: regenerates a
// document's Metadata.Context field from its content.
func (s *Service) EnhanceContext(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}

	rec, err := s.lookup(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, contextPrompt(rec.Content), contextSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Context == "" {
		return nil, mcp.NewToolError(mcp.CodeSchemaInvalid, "LLM response did not match the context schema", err)
	}

	rec.Metadata.Context = parsed.Context
	if err := s.writeBack(ctx, rec); err != nil {
		return nil, err
	}
	return map[string]string{"document_id": rec.UUID, "context": parsed.Context}, nil
}

// GenerateTags handles the "generate_tags" tool: merges newly suggested
// tags into Metadata.Tags, de-duplicating while preserving order.
func (s *Service) GenerateTags(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}

	rec, err := s.lookup(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, tagsPrompt(rec.Content), tagsSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, mcp.NewToolError(mcp.CodeSchemaInvalid, "LLM response did not match the tags schema", err)
	}

	rec.Metadata.Tags = mergeTags(rec.Metadata.Tags, parsed.Tags)
	if err := s.writeBack(ctx, rec); err != nil {
		return nil, err
	}
	return map[string]interface{}{"document_id": rec.UUID, "tags": rec.Metadata.Tags}, nil
}

func mergeTags(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, t := range append(append([]string{}, existing...), added...) {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ImproveTitle handles the "improve_title" tool.
func (s *Service) ImproveTitle(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}

	rec, err := s.lookup(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, titlePrompt(rec.Content, rec.Title), titleSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Title == "" {
		return nil, mcp.NewToolError(mcp.CodeSchemaInvalid, "LLM response did not match the title schema", err)
	}

	rec.Title = parsed.Title
	if err := s.writeBack(ctx, rec); err != nil {
		return nil, err
	}
	return map[string]string{"document_id": rec.UUID, "title": rec.Title}, nil
}

// ExtractMetadata handles the "extract_metadata" tool: deep-merges
// extracted custom_metadata key/value pairs, stringifying values, and
// optionally updates Metadata.Status if the response names a valid one.
func (s *Service) ExtractMetadata(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}

	rec, err := s.lookup(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, metadataPrompt(rec.Content), metadataSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		CustomMetadata map[string]interface{} `json:"custom_metadata"`
		Status         dataset.MetadataStatus  `json:"status"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, mcp.NewToolError(mcp.CodeSchemaInvalid, "LLM response did not match the metadata schema", err)
	}

	if rec.Metadata.Custom == nil {
		rec.Metadata.Custom = map[string]string{}
	}
	for k, v := range parsed.CustomMetadata {
		rec.Metadata.Custom[k] = fmt.Sprintf("%v", v)
	}
	if parsed.Status != "" {
		if !parsed.Status.Valid() {
			return nil, mcp.NewToolError(mcp.CodeSchemaInvalid, fmt.Sprintf("LLM returned invalid status %q", parsed.Status), nil)
		}
		rec.Metadata.Status = parsed.Status
	}

	if err := s.writeBack(ctx, rec); err != nil {
		return nil, err
	}
	return map[string]interface{}{"document_id": rec.UUID, "custom_metadata": rec.Metadata.Custom, "status": rec.Metadata.Status}, nil
}

// EnhanceForPurpose handles the "enhance_for_purpose" tool: regenerates
// the context note tailored to a caller-specified purpose.
func (s *Service) EnhanceForPurpose(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
		Purpose    string `json:"purpose"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.Purpose == "" {
		return nil, mcp.InvalidParamsError("purpose is required")
	}

	rec, err := s.lookup(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, purposePrompt(rec.Content, args.Purpose), contextSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Context == "" {
		return nil, mcp.NewToolError(mcp.CodeSchemaInvalid, "LLM response did not match the context schema", err)
	}

	rec.Metadata.Context = parsed.Context
	if err := s.writeBack(ctx, rec); err != nil {
		return nil, err
	}
	return map[string]string{"document_id": rec.UUID, "context": parsed.Context, "purpose": args.Purpose}, nil
}

// BatchEnhance handles the "batch_enhance" tool: applies one of the five
// single-document handlers across a list of document IDs, collecting a
// FieldResult per document. A per-document error is logged into its
// FieldResult and does not stop the remaining documents.
func (s *Service) BatchEnhance(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentIDs []string `json:"document_ids"`
		Operation   string   `json:"operation"`
		Purpose     string   `json:"purpose,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if len(args.DocumentIDs) == 0 {
		return nil, mcp.InvalidParamsError("document_ids must not be empty")
	}

	handler, ok := map[string]func(context.Context, json.RawMessage) (interface{}, error){
		"enhance_context":     s.EnhanceContext,
		"extract_metadata":    s.ExtractMetadata,
		"generate_tags":       s.GenerateTags,
		"improve_title":       s.ImproveTitle,
		"enhance_for_purpose": s.EnhanceForPurpose,
	}[args.Operation]
	if !ok {
		return nil, mcp.InvalidParamsError("unknown batch_enhance operation %q", args.Operation)
	}

	results := make([]FieldResult, 0, len(args.DocumentIDs))
	for _, id := range args.DocumentIDs {
		perDocArgs, _ := json.Marshal(map[string]string{"document_id": id, "purpose": args.Purpose})
		value, err := handler(ctx, perDocArgs)
		if err != nil {
			results = append(results, FieldResult{Field: args.Operation, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, FieldResult{Field: args.Operation, Value: value, Success: true})
	}
	return map[string]interface{}{"results": results}, nil
}
