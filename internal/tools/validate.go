// Package tools registers the MCP tool and resource handlers (CRUD,
// search, analytics, monitoring, enhancement, extraction) that make up the
// server's agent-facing surface, wiring each against the dataset,
// analytics, monitoring, and enhance packages.
package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// FieldError is one entry of a multi-field validation failure, reported in
// sorted key order so diagnostics are stable across runs.
type FieldError struct {
	Field     string `json:"field"`
	ValueType string `json:"value_type,omitempty"`
	Hint      string `json:"hint"`
}

// validationError builds an InvalidParams ToolError carrying the full list
// of field errors in its Data, per the "enumerate every failing field"
// requirement.
func validationError(errs []FieldError) *mcp.ToolError {
	data := make([]map[string]interface{}, 0, len(errs))
	for _, e := range errs {
		entry := map[string]interface{}{"field": e.Field, "hint": e.Hint}
		if e.ValueType != "" {
			entry["value_type"] = e.ValueType
		}
		data = append(data, entry)
	}
	te := mcp.NewToolError(mcp.InvalidParams, fmt.Sprintf("%d field(s) failed validation", len(errs)), nil)
	te.Data = map[string]interface{}{"errors": data}
	return te
}

// validateCustomMetadata walks a raw custom_metadata object and reports
// every key whose value is not a JSON string, naming the JSON type found
// and recommending stringification — the exact diagnostic S3 requires for
// a non-string value under custom_metadata.
func validateCustomMetadata(raw json.RawMessage) []FieldError {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return []FieldError{{Field: "custom_metadata", Hint: "must be a JSON object of string values"}}
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []FieldError
	for _, key := range keys {
		var s string
		if err := json.Unmarshal(fields[key], &s); err != nil {
			errs = append(errs, FieldError{
				Field:     "custom_metadata." + key,
				ValueType: jsonValueType(fields[key]),
				Hint:      "convert to string",
			})
		}
	}
	return errs
}

func jsonValueType(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "unknown"
	}
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "unknown"
	}
}
