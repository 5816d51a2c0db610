package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCustomMetadata_ReportsNonStringFieldsInSortedOrder(t *testing.T) {
	raw := json.RawMessage(`{"priority":1,"archived":false,"owner":"alice","tags":["a","b"]}`)
	errs := validateCustomMetadata(raw)

	require.Len(t, errs, 3)
	assert.Equal(t, "custom_metadata.archived", errs[0].Field)
	assert.Equal(t, "boolean", errs[0].ValueType)
	assert.Equal(t, "custom_metadata.priority", errs[1].Field)
	assert.Equal(t, "number", errs[1].ValueType)
	assert.Equal(t, "custom_metadata.tags", errs[2].Field)
	assert.Equal(t, "array", errs[2].ValueType)
	for _, e := range errs {
		assert.Contains(t, e.Hint, "string")
	}
}

func TestValidateCustomMetadata_AllStringsPasses(t *testing.T) {
	raw := json.RawMessage(`{"owner":"alice","team":"infra"}`)
	errs := validateCustomMetadata(raw)
	assert.Empty(t, errs)
}

func TestValidateCustomMetadata_EmptyPasses(t *testing.T) {
	assert.Empty(t, validateCustomMetadata(nil))
}

func TestJSONValueType(t *testing.T) {
	cases := map[string]string{
		`null`:    "null",
		`true`:    "boolean",
		`1.5`:     "number",
		`"s"`:     "string",
		`[1,2]`:   "array",
		`{"a":1}`: "object",
	}
	for raw, want := range cases {
		assert.Equal(t, want, jsonValueType(json.RawMessage(raw)))
	}
}
