package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// CRUDService implements the add_document/get_document/update_document/
// delete_document tool handlers.
type CRUDService struct {
	ds dataset.Dataset
}

// NewCRUDService wires a CRUDService around ds.
func NewCRUDService(ds dataset.Dataset) *CRUDService {
	return &CRUDService{ds: ds}
}

type metadataArgs struct {
	Tags           []string                   `json:"tags,omitempty"`
	Status         dataset.MetadataStatus     `json:"status,omitempty"`
	Context        string                     `json:"context,omitempty"`
	Collection     string                     `json:"collection,omitempty"`
	Author         string                     `json:"author,omitempty"`
	Relationships  []dataset.Relationship     `json:"relationships,omitempty"`
	CustomMetadata map[string]string          `json:"custom_metadata,omitempty"`
}

// AddDocument handles the "add_document" tool.
func (s *CRUDService) AddDocument(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Title      string          `json:"title"`
		Content    string          `json:"content"`
		RecordType dataset.RecordType `json:"record_type,omitempty"`
		Metadata   json.RawMessage `json:"metadata,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}

	var rawMeta map[string]json.RawMessage
	_ = json.Unmarshal(args.Metadata, &rawMeta)
	if errs := validateCustomMetadata(rawMeta["custom_metadata"]); len(errs) > 0 {
		return nil, validationError(errs)
	}

	var meta metadataArgs
	if len(args.Metadata) > 0 {
		if err := json.Unmarshal(args.Metadata, &meta); err != nil {
			return nil, mcp.InvalidParamsError("invalid metadata: %v", err)
		}
	}

	recType := args.RecordType
	if recType == "" {
		recType = dataset.RecordTypeDocument
	}

	rec := dataset.Record{
		UUID:    dataset.NewUUID(),
		Title:   args.Title,
		Content: args.Content,
		Type:    recType,
		Metadata: dataset.Metadata{
			Tags:          meta.Tags,
			Status:        meta.Status,
			Context:       meta.Context,
			Collection:    meta.Collection,
			Author:        meta.Author,
			Relationships: meta.Relationships,
			Custom:        meta.CustomMetadata,
		},
	}

	id, err := s.ds.Add(ctx, rec)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, fmt.Sprintf("failed to add document: %v", err), err)
	}
	return map[string]string{"document_id": id}, nil
}

// GetDocument handles the "get_document" tool.
func (s *CRUDService) GetDocument(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.DocumentID == "" {
		return nil, mcp.InvalidParamsError("document_id is required")
	}

	rec, err := s.ds.GetByUUID(ctx, args.DocumentID)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeNotFound, fmt.Sprintf("document %q not found", args.DocumentID), err)
	}
	return rec, nil
}

// UpdateDocument handles the "update_document" tool: only the fields
// present in the request are touched, everything else keeps its prior
// value.
func (s *CRUDService) UpdateDocument(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string          `json:"document_id"`
		Title      *string         `json:"title,omitempty"`
		Content    *string         `json:"content,omitempty"`
		Metadata   json.RawMessage `json:"metadata,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.DocumentID == "" {
		return nil, mcp.InvalidParamsError("document_id is required")
	}

	var rawMeta map[string]json.RawMessage
	_ = json.Unmarshal(args.Metadata, &rawMeta)
	if errs := validateCustomMetadata(rawMeta["custom_metadata"]); len(errs) > 0 {
		return nil, validationError(errs)
	}

	rec, err := s.ds.GetByUUID(ctx, args.DocumentID)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeNotFound, fmt.Sprintf("document %q not found", args.DocumentID), err)
	}

	if args.Title != nil {
		rec.Title = *args.Title
	}
	if args.Content != nil {
		rec.Content = *args.Content
	}
	if len(args.Metadata) > 0 {
		var meta metadataArgs
		if err := json.Unmarshal(args.Metadata, &meta); err != nil {
			return nil, mcp.InvalidParamsError("invalid metadata: %v", err)
		}
		if _, ok := rawMeta["tags"]; ok {
			rec.Metadata.Tags = meta.Tags
		}
		if _, ok := rawMeta["status"]; ok {
			rec.Metadata.Status = meta.Status
		}
		if _, ok := rawMeta["context"]; ok {
			rec.Metadata.Context = meta.Context
		}
		if _, ok := rawMeta["collection"]; ok {
			rec.Metadata.Collection = meta.Collection
		}
		if _, ok := rawMeta["author"]; ok {
			rec.Metadata.Author = meta.Author
		}
		if _, ok := rawMeta["relationships"]; ok {
			rec.Metadata.Relationships = meta.Relationships
		}
		if _, ok := rawMeta["custom_metadata"]; ok {
			if rec.Metadata.Custom == nil {
				rec.Metadata.Custom = map[string]string{}
			}
			for k, v := range meta.CustomMetadata {
				rec.Metadata.Custom[k] = v
			}
		}
	}

	if err := s.ds.UpdateRecord(ctx, rec); err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, fmt.Sprintf("failed to update document: %v", err), err)
	}
	return rec, nil
}

// DeleteDocument handles the "delete_document" tool.
func (s *CRUDService) DeleteDocument(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.DocumentID == "" {
		return nil, mcp.InvalidParamsError("document_id is required")
	}

	if err := s.ds.DeleteRecord(ctx, args.DocumentID); err != nil {
		return nil, mcp.NewToolError(mcp.CodeNotFound, fmt.Sprintf("document %q not found", args.DocumentID), err)
	}
	return map[string]string{"document_id": args.DocumentID}, nil
}
