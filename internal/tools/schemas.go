package tools

// JSON Schema documents for the CRUD, search, analytics, and monitoring
// tools. custom_metadata is deliberately left untyped here (a generic
// object) rather than constrained to string values at the schema layer —
// the field-level stringification diagnostic in validate.go needs to see
// the original JSON types to report them, so that check runs inside the
// handler instead of being rejected earlier by schema validation.
const (
	metadataObjectSchema = `{
		"type": "object",
		"properties": {
			"tags": {"type": "array", "items": {"type": "string"}},
			"status": {"type": "string", "enum": ["", "draft", "review", "published", "archived"]},
			"context": {"type": "string"},
			"collection": {"type": "string"},
			"author": {"type": "string"},
			"relationships": {"type": "array"},
			"custom_metadata": {"type": "object"}
		}
	}`

	addDocumentSchema = `{
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"content": {"type": "string"},
			"record_type": {"type": "string", "enum": ["document", "collection_header", "dataset_header", "frameset"]},
			"metadata": ` + metadataObjectSchema + `
		},
		"required": ["title", "content"],
		"additionalProperties": false
	}`

	updateDocumentSchema = `{
		"type": "object",
		"properties": {
			"document_id": {"type": "string"},
			"title": {"type": "string"},
			"content": {"type": "string"},
			"metadata": ` + metadataObjectSchema + `
		},
		"required": ["document_id"],
		"additionalProperties": false
	}`

	searchDocumentsSchema = `{
		"type": "object",
		"properties": {
			"query": {"type": "string"},
			"search_type": {"type": "string", "enum": ["vector", "text", "hybrid"]},
			"limit": {"type": "integer", "minimum": 1},
			"filter": {"type": "string"}
		},
		"required": ["query"],
		"additionalProperties": false
	}`

	getDatasetStatsSchema = `{
		"type": "object",
		"properties": {
			"include_details": {"type": "boolean"},
			"include_content": {"type": "boolean"},
			"include_relationships": {"type": "boolean"},
			"sample_size": {"type": "integer", "minimum": 0}
		},
		"additionalProperties": false
	}`

	optimizeStorageSchema = `{
		"type": "object",
		"properties": {
			"operation": {"type": "string", "enum": ["compact", "vacuum", "reindex"]},
			"dry_run": {"type": "boolean"}
		},
		"required": ["operation"],
		"additionalProperties": false
	}`

	indexRecommendationsSchema = `{
		"type": "object",
		"properties": {
			"analyze_queries": {"type": "boolean"},
			"workload": {"type": "string", "enum": ["search", "analytics", "mixed"]}
		},
		"additionalProperties": false
	}`

	benchmarkOperationsSchema = `{
		"type": "object",
		"properties": {
			"operation": {"type": "string", "enum": ["search", "insert", "update", "scan"]},
			"sample_size": {"type": "integer", "minimum": 1},
			"concurrency": {"type": "integer", "minimum": 1}
		},
		"required": ["operation"],
		"additionalProperties": false
	}`

	exportMetricsSchema = `{
		"type": "object",
		"properties": {
			"format": {"type": "string", "enum": ["json", "prometheus", "csv"]}
		},
		"additionalProperties": false
	}`

	emptyObjectSchema = `{"type": "object", "additionalProperties": false}`
)
