package tools

import (
	"context"
	"encoding/json"

	"github.com/contextframeai/contextframe-mcp/internal/analytics"
	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

func marshalIndent(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", mcp.NewToolError(mcp.InternalError, "failed to marshal resource content", err)
	}
	return string(b), nil
}

// ResourceService implements the two always-present resources:
// contextframe://dataset/info and contextframe://dataset/schema.
type ResourceService struct {
	ds    dataset.Dataset
	stats *analytics.StatsCollector
}

// NewResourceService wires a ResourceService around ds and stats.
func NewResourceService(ds dataset.Dataset, stats *analytics.StatsCollector) *ResourceService {
	return &ResourceService{ds: ds, stats: stats}
}

// DatasetInfo serves "contextframe://dataset/info".
func (s *ResourceService) DatasetInfo(ctx context.Context, uri string) (mcp.ResourceContent, error) {
	report, err := s.stats.Collect(ctx, analytics.StatsOptions{})
	if err != nil {
		return mcp.ResourceContent{}, mcp.NewToolError(mcp.CodeDatasetError, "failed to collect dataset info", err)
	}
	text, err := marshalIndent(report)
	if err != nil {
		return mcp.ResourceContent{}, err
	}
	return mcp.ResourceContent{URI: uri, MimeType: "application/json", Text: text}, nil
}

// DatasetSchema serves "contextframe://dataset/schema".
func (s *ResourceService) DatasetSchema(ctx context.Context, uri string) (mcp.ResourceContent, error) {
	schema := map[string]interface{}{
		"record_types":       []dataset.RecordType{dataset.RecordTypeDocument, dataset.RecordTypeCollectionHdr, dataset.RecordTypeDatasetHeader, dataset.RecordTypeFrameset},
		"relationship_types": []dataset.RelationshipType{dataset.RelationshipParent, dataset.RelationshipChild, dataset.RelationshipRelated, dataset.RelationshipReference, dataset.RelationshipContains, dataset.RelationshipMemberOf},
		"metadata_statuses":  []dataset.MetadataStatus{dataset.StatusDraft, dataset.StatusReview, dataset.StatusPublished, dataset.StatusArchived},
	}
	text, err := marshalIndent(schema)
	if err != nil {
		return mcp.ResourceContent{}, err
	}
	return mcp.ResourceContent{URI: uri, MimeType: "application/json", Text: text}, nil
}
