package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// Extractor turns raw file bytes into a candidate Record. Implementations
// are format-specific; Extract never writes to the dataset itself.
type Extractor interface {
	Extract(path string, data []byte) (dataset.Record, error)
}

var extractors = map[string]Extractor{
	"markdown": markdownExtractor{},
	"json":     jsonExtractor{},
	"yaml":     yamlExtractor{},
	"csv":      csvExtractor{},
	"plain":    plainExtractor{},
}

// formatFromHint resolves an explicit format hint, falling back to the
// file extension when the hint is empty.
func formatFromHint(hint, path string) string {
	if hint != "" {
		return hint
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".csv":
		return "csv"
	default:
		return "plain"
	}
}

// ExtractionService implements the format-aware extraction tools
// (extract_from_file, batch_extract).
type ExtractionService struct {
	ds       dataset.Dataset
	embedder Embedder
}

// NewExtractionService wires an ExtractionService around ds. embedder may
// be nil, in which case extracted records are stored without a vector.
func NewExtractionService(ds dataset.Dataset, embedder Embedder) *ExtractionService {
	return &ExtractionService{ds: ds, embedder: embedder}
}

func (s *ExtractionService) extractOne(ctx context.Context, path, formatHint string, addToDataset, embed bool) (dataset.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dataset.Record{}, mcp.NewToolError(mcp.CodeToolError, fmt.Sprintf("failed to read %s: %v", path, err), err)
	}

	format := formatFromHint(formatHint, path)
	extractor, ok := extractors[format]
	if !ok {
		return dataset.Record{}, mcp.InvalidParamsError("unsupported format %q", format)
	}

	rec, err := extractor.Extract(path, data)
	if err != nil {
		return dataset.Record{}, mcp.NewToolError(mcp.CodeToolError, fmt.Sprintf("failed to extract %s: %v", path, err), err)
	}

	rec.UUID = dataset.NewUUID()
	rec.Type = dataset.RecordTypeDocument
	rec.Metadata.CreatedAt = time.Now().UTC()
	rec.Metadata.UpdatedAt = rec.Metadata.CreatedAt

	if embed && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, rec.Content)
		if err != nil {
			return dataset.Record{}, mcp.NewToolError(mcp.CodeProviderError, fmt.Sprintf("failed to embed %s: %v", path, err), err)
		}
		rec.Vector = vec
	}

	if addToDataset {
		if _, err := s.ds.Add(ctx, rec); err != nil {
			return dataset.Record{}, mcp.NewToolError(mcp.CodeDatasetError, fmt.Sprintf("failed to store %s: %v", path, err), err)
		}
	}

	return rec, nil
}

// ExtractFromFile handles the "extract_from_file" tool.
func (s *ExtractionService) ExtractFromFile(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Path         string `json:"path"`
		Format       string `json:"format,omitempty"`
		AddToDataset bool   `json:"add_to_dataset,omitempty"`
		Embed        bool   `json:"embed,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.Path == "" {
		return nil, mcp.InvalidParamsError("path is required")
	}

	rec, err := s.extractOne(ctx, args.Path, args.Format, args.AddToDataset, args.Embed)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// BatchExtract handles the "batch_extract" tool: walks a directory tree
// matching glob patterns, extracting one record candidate per matched
// file. Per-file failures are collected and do not stop the walk.
func (s *ExtractionService) BatchExtract(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		RootPath     string   `json:"root_path"`
		Patterns     []string `json:"patterns,omitempty"`
		Format       string   `json:"format,omitempty"`
		AddToDataset bool     `json:"add_to_dataset,omitempty"`
		Embed        bool     `json:"embed,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.RootPath == "" {
		return nil, mcp.InvalidParamsError("root_path is required")
	}
	patterns := args.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	type fileResult struct {
		Path    string `json:"path"`
		Success bool   `json:"success"`
		UUID    string `json:"uuid,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	var results []fileResult

	err := filepath.WalkDir(args.RootPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			results = append(results, fileResult{Path: path, Success: false, Error: walkErr.Error()})
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !matchesAny(patterns, d.Name()) {
			return nil
		}

		rec, err := s.extractOne(ctx, path, args.Format, args.AddToDataset, args.Embed)
		if err != nil {
			results = append(results, fileResult{Path: path, Success: false, Error: err.Error()})
			return nil
		}
		results = append(results, fileResult{Path: path, Success: true, UUID: rec.UUID})
		return nil
	})
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeToolError, fmt.Sprintf("failed to walk %s: %v", args.RootPath, err), err)
	}

	return map[string]interface{}{"results": results}, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
