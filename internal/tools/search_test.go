package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/internal/dataset/memref"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (e stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return e.vector, e.err }
func (e stubEmbedder) Dimensions() int                                          { return len(e.vector) }

func seedSearchRecord(t *testing.T, ds dataset.Dataset, title, content string, vector []float32) string {
	t.Helper()
	rec := dataset.Record{UUID: dataset.NewUUID(), Title: title, Content: content, Type: dataset.RecordTypeDocument, Vector: vector}
	id, err := ds.Add(context.Background(), rec)
	require.NoError(t, err)
	return id
}

func TestSearchService_TextSearch_ReturnsDocumentsShape(t *testing.T) {
	ds := memref.New()
	id := seedSearchRecord(t, ds, "Doc B", "contains the word apple", nil)

	svc := NewSearchService(ds, nil)
	args, _ := json.Marshal(map[string]interface{}{"query": "apple", "search_type": "text", "limit": 1})

	result, err := svc.SearchDocuments(context.Background(), args)
	require.NoError(t, err)

	payload := result.(map[string]interface{})
	docs := payload["documents"].([]searchDocument)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].UUID)
}

func TestSearchService_VectorSearch_NoEmbedderReturnsProviderError(t *testing.T) {
	ds := memref.New()
	seedSearchRecord(t, ds, "Doc", "content", []float32{0.1, 0.2})

	svc := NewSearchService(ds, nil)
	args, _ := json.Marshal(map[string]interface{}{"query": "anything", "search_type": "vector"})

	_, err := svc.SearchDocuments(context.Background(), args)
	assert.Error(t, err)
}

func TestSearchService_VectorSearch_UsesEmbedder(t *testing.T) {
	ds := memref.New()
	id := seedSearchRecord(t, ds, "Doc B", "content", []float32{1, 0, 0})
	seedSearchRecord(t, ds, "Doc A", "other", []float32{0, 1, 0})

	svc := NewSearchService(ds, stubEmbedder{vector: []float32{1, 0, 0}})
	args, _ := json.Marshal(map[string]interface{}{"query": "B", "search_type": "vector", "limit": 1})

	result, err := svc.SearchDocuments(context.Background(), args)
	require.NoError(t, err)

	payload := result.(map[string]interface{})
	docs := payload["documents"].([]searchDocument)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].UUID)
}

func TestSearchService_RejectsUnknownSearchType(t *testing.T) {
	ds := memref.New()
	svc := NewSearchService(ds, nil)
	args, _ := json.Marshal(map[string]interface{}{"query": "x", "search_type": "fuzzy"})

	_, err := svc.SearchDocuments(context.Background(), args)
	assert.Error(t, err)
}

func TestSearchService_RequiresQuery(t *testing.T) {
	ds := memref.New()
	svc := NewSearchService(ds, nil)
	args, _ := json.Marshal(map[string]interface{}{"search_type": "text"})

	_, err := svc.SearchDocuments(context.Background(), args)
	assert.Error(t, err)
}
