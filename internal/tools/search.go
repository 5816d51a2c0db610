package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/internal/enhance"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// SearchType selects which retrieval strategy search_documents uses.
type SearchType string

const (
	SearchVector SearchType = "vector"
	SearchText   SearchType = "text"
	SearchHybrid SearchType = "hybrid"
)

func (t SearchType) valid() bool {
	switch t {
	case SearchVector, SearchText, SearchHybrid:
		return true
	default:
		return false
	}
}

// SearchService implements the "search_documents" tool.
type SearchService struct {
	ds       dataset.Dataset
	embedder enhance.Embedder
}

// NewSearchService wires a SearchService around ds. embedder may be nil,
// in which case search_type "vector" and the vector leg of "hybrid" report
// a provider error rather than panicking.
func NewSearchService(ds dataset.Dataset, embedder enhance.Embedder) *SearchService {
	return &SearchService{ds: ds, embedder: embedder}
}

// searchDocument is the wire shape returned in the "documents" array: a
// minimal projection carrying just enough for a caller to follow up with
// get_document, plus a relevance score for ranking.
type searchDocument struct {
	UUID  string  `json:"uuid"`
	Title string  `json:"title"`
	Score float32 `json:"score"`
}

// SearchDocuments handles the "search_documents" tool. The response shape
// is {"documents":[{"uuid":...}, ...]}, the exact contract the monitoring
// integration shim's per-document usage tracking depends on.
func (s *SearchService) SearchDocuments(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Query      string     `json:"query"`
		SearchType SearchType `json:"search_type"`
		Limit      int        `json:"limit,omitempty"`
		Filter     string     `json:"filter,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.Query == "" {
		return nil, mcp.InvalidParamsError("query is required")
	}
	if args.SearchType == "" {
		args.SearchType = SearchText
	}
	if !args.SearchType.valid() {
		return nil, mcp.InvalidParamsError("search_type must be one of vector, text, hybrid; got %q", args.SearchType)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	var docs []searchDocument
	switch args.SearchType {
	case SearchText:
		results, err := s.ds.FullTextSearch(ctx, args.Query, limit, args.Filter)
		if err != nil {
			return nil, mcp.NewToolError(mcp.CodeDatasetError, fmt.Sprintf("full text search failed: %v", err), err)
		}
		for _, r := range results {
			docs = append(docs, searchDocument{UUID: r.Record.UUID, Title: r.Record.Title, Score: r.Score})
		}

	case SearchVector:
		results, err := s.vectorSearch(ctx, args.Query, limit, args.Filter)
		if err != nil {
			return nil, err
		}
		docs = results

	case SearchHybrid:
		vecDocs, err := s.vectorSearch(ctx, args.Query, limit, args.Filter)
		if err != nil {
			return nil, err
		}
		textResults, err := s.ds.FullTextSearch(ctx, args.Query, limit, args.Filter)
		if err != nil {
			return nil, mcp.NewToolError(mcp.CodeDatasetError, fmt.Sprintf("full text search failed: %v", err), err)
		}
		docs = mergeSearchResults(vecDocs, textResults, limit)
	}

	return map[string]interface{}{"documents": docs}, nil
}

func (s *SearchService) vectorSearch(ctx context.Context, query string, limit int, filter string) ([]searchDocument, error) {
	if s.embedder == nil {
		return nil, mcp.NewToolError(mcp.CodeProviderError, "no embedding provider configured", nil)
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeProviderError, fmt.Sprintf("failed to embed query: %v", err), err)
	}
	results, err := s.ds.KNNSearch(ctx, vec, limit, filter)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, fmt.Sprintf("knn search failed: %v", err), err)
	}
	docs := make([]searchDocument, 0, len(results))
	for _, r := range results {
		docs = append(docs, searchDocument{UUID: r.Record.UUID, Title: r.Record.Title, Score: 1 / (1 + r.Distance)})
	}
	return docs, nil
}

// mergeSearchResults lists vector hits first, then text hits not already
// present, de-duplicating by UUID and keeping the higher of the two scores,
// then truncates to limit.
func mergeSearchResults(vecDocs []searchDocument, textResults []dataset.FTSResult, limit int) []searchDocument {
	byID := make(map[string]searchDocument)
	order := make([]string, 0, len(vecDocs)+len(textResults))
	for _, d := range vecDocs {
		byID[d.UUID] = d
		order = append(order, d.UUID)
	}
	for _, r := range textResults {
		if existing, ok := byID[r.Record.UUID]; ok {
			if r.Score > existing.Score {
				existing.Score = r.Score
				byID[r.Record.UUID] = existing
			}
			continue
		}
		byID[r.Record.UUID] = searchDocument{UUID: r.Record.UUID, Title: r.Record.Title, Score: r.Score}
		order = append(order, r.Record.UUID)
	}
	out := make([]searchDocument, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
		if len(out) >= limit {
			break
		}
	}
	return out
}
