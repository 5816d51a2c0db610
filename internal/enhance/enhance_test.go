package enhance

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/internal/dataset/memref"
)

type stubCaller struct {
	response string
	err      error
}

func (s stubCaller) Complete(ctx context.Context, prompt string, schema []byte) (string, error) {
	return s.response, s.err
}

func seedRecord(t *testing.T, ds dataset.Dataset, title, content string) string {
	t.Helper()
	rec := dataset.Record{
		UUID:    dataset.NewUUID(),
		Title:   title,
		Content: content,
		Type:    dataset.RecordTypeDocument,
	}
	id, err := ds.Add(context.Background(), rec)
	require.NoError(t, err)
	return id
}

func TestService_EnhanceContext_MergesAndWritesBack(t *testing.T) {
	ds := memref.New()
	id := seedRecord(t, ds, "Old Title", "a document about onboarding flows")

	svc := NewService(ds, stubCaller{response: `{"context":"An onboarding overview."}`})
	args, _ := json.Marshal(map[string]string{"document_id": id})

	result, err := svc.EnhanceContext(context.Background(), args)
	require.NoError(t, err)
	assert.NotNil(t, result)

	rec, err := ds.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "An onboarding overview.", rec.Metadata.Context)
}

func TestService_GenerateTags_DedupsAndLowercases(t *testing.T) {
	ds := memref.New()
	id := seedRecord(t, ds, "Doc", "content")

	svc := NewService(ds, stubCaller{response: `{"tags":["Onboarding","API","onboarding"]}`})
	args, _ := json.Marshal(map[string]string{"document_id": id})

	_, err := svc.GenerateTags(context.Background(), args)
	require.NoError(t, err)

	rec, err := ds.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"onboarding", "api"}, rec.Metadata.Tags)
}

func TestService_ImproveTitle_UpdatesTitle(t *testing.T) {
	ds := memref.New()
	id := seedRecord(t, ds, "doc1", "content about rate limiting internals")

	svc := NewService(ds, stubCaller{response: `{"title":"Rate Limiting Internals"}`})
	args, _ := json.Marshal(map[string]string{"document_id": id})

	_, err := svc.ImproveTitle(context.Background(), args)
	require.NoError(t, err)

	rec, err := ds.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Rate Limiting Internals", rec.Title)
}

func TestService_ExtractMetadata_RejectsInvalidStatus(t *testing.T) {
	ds := memref.New()
	id := seedRecord(t, ds, "doc1", "content")

	svc := NewService(ds, stubCaller{response: `{"custom_metadata":{"team":"infra"},"status":"not-a-status"}`})
	args, _ := json.Marshal(map[string]string{"document_id": id})

	_, err := svc.ExtractMetadata(context.Background(), args)
	assert.Error(t, err)
}

func TestService_ExtractMetadata_MergesCustomFields(t *testing.T) {
	ds := memref.New()
	id := seedRecord(t, ds, "doc1", "content")

	svc := NewService(ds, stubCaller{response: `{"custom_metadata":{"team":"infra"},"status":"published"}`})
	args, _ := json.Marshal(map[string]string{"document_id": id})

	_, err := svc.ExtractMetadata(context.Background(), args)
	require.NoError(t, err)

	rec, err := ds.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "infra", rec.Metadata.Custom["team"])
	assert.Equal(t, dataset.StatusPublished, rec.Metadata.Status)
}

func TestService_LLMFailure_DoesNotMutateRecord(t *testing.T) {
	ds := memref.New()
	id := seedRecord(t, ds, "Unchanged", "content")

	svc := NewService(ds, stubCaller{err: assertErr{}})
	args, _ := json.Marshal(map[string]string{"document_id": id})

	_, err := svc.ImproveTitle(context.Background(), args)
	assert.Error(t, err)

	rec, err := ds.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Unchanged", rec.Title)
}

func TestService_UnknownDocument_ReturnsInvalidParams(t *testing.T) {
	ds := memref.New()
	svc := NewService(ds, stubCaller{response: `{"title":"x"}`})
	args, _ := json.Marshal(map[string]string{"document_id": "does-not-exist"})

	_, err := svc.ImproveTitle(context.Background(), args)
	assert.Error(t, err)
}

func TestService_NoProviderConfigured_ReturnsProviderError(t *testing.T) {
	ds := memref.New()
	id := seedRecord(t, ds, "doc", "content")
	svc := NewService(ds, nil)
	args, _ := json.Marshal(map[string]string{"document_id": id})

	_, err := svc.EnhanceContext(context.Background(), args)
	assert.Error(t, err)
}

func TestService_BatchEnhance_ContinuesPastPerDocumentFailure(t *testing.T) {
	ds := memref.New()
	okID := seedRecord(t, ds, "ok", "content")

	svc := NewService(ds, stubCaller{response: `{"title":"New Title"}`})
	args, _ := json.Marshal(map[string]interface{}{
		"document_ids": []string{okID, "missing-id"},
		"operation":    "improve_title",
	})

	result, err := svc.BatchEnhance(context.Background(), args)
	require.NoError(t, err)

	payload, ok := result.(map[string]interface{})
	require.True(t, ok)
	results := payload["results"].([]FieldResult)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated llm failure" }
