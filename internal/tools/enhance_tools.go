package tools

import "encoding/json"

const documentIDSchema = `{
	"type": "object",
	"properties": {
		"document_id": {"type": "string"}
	},
	"required": ["document_id"],
	"additionalProperties": false
}`

const enhanceForPurposeSchema = `{
	"type": "object",
	"properties": {
		"document_id": {"type": "string"},
		"purpose": {"type": "string"}
	},
	"required": ["document_id", "purpose"],
	"additionalProperties": false
}`

const batchEnhanceSchema = `{
	"type": "object",
	"properties": {
		"document_ids": {"type": "array", "items": {"type": "string"}},
		"operation": {"type": "string", "enum": ["enhance_context", "extract_metadata", "generate_tags", "improve_title", "enhance_for_purpose"]},
		"purpose": {"type": "string"}
	},
	"required": ["document_ids", "operation"],
	"additionalProperties": false
}`

const extractFromFileSchema = `{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"format": {"type": "string", "enum": ["markdown", "json", "yaml", "csv", "plain"]},
		"add_to_dataset": {"type": "boolean"},
		"embed": {"type": "boolean"}
	},
	"required": ["path"],
	"additionalProperties": false
}`

const batchExtractSchema = `{
	"type": "object",
	"properties": {
		"root_path": {"type": "string"},
		"patterns": {"type": "array", "items": {"type": "string"}},
		"format": {"type": "string", "enum": ["markdown", "json", "yaml", "csv", "plain"]},
		"add_to_dataset": {"type": "boolean"},
		"embed": {"type": "boolean"}
	},
	"required": ["root_path"],
	"additionalProperties": false
}`

func rawSchema(s string) json.RawMessage { return json.RawMessage(s) }
