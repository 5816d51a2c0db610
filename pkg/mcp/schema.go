package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompiledSchema validates tool arguments against a JSON Schema document
// supplied at registration time.
type CompiledSchema struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

// CompileSchema compiles a raw JSON Schema document under draft-07, the
// draft this server's tool input schemas are authored against. A nil or
// empty schema compiles to a permissive schema that accepts any arguments.
func CompileSchema(raw json.RawMessage) (*CompiledSchema, error) {
	if len(raw) == 0 {
		return &CompiledSchema{}, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	const resourceName = "schema.json"
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid schema json: %w", err)
	}
	if err := compiler.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &CompiledSchema{raw: raw, compiled: schema}, nil
}

// SchemaFieldError is one leaf validation failure: a field, the JSON type
// the caller actually sent for it (when the argument is available), and a
// hint describing what the schema required. SchemaValidationError.Fields
// lists these in the order jsonschema.ValidationError's causes are walked.
type SchemaFieldError struct {
	Field     string `json:"field"`
	ValueType string `json:"value_type,omitempty"`
	Hint      string `json:"hint"`
}

// SchemaValidationError wraps a *jsonschema.ValidationError with its leaf
// causes flattened into a stable, ordered list of SchemaFieldError.
type SchemaValidationError struct {
	cause  error
	Fields []SchemaFieldError
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSchemaInvalid, e.cause)
}

func (e *SchemaValidationError) Unwrap() error { return e.cause }

// Validate checks arguments against the schema. A CompiledSchema with no
// underlying jsonschema.Schema (the permissive default) always succeeds.
func (s *CompiledSchema) Validate(arguments json.RawMessage) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	var doc interface{}
	if len(arguments) == 0 {
		doc = map[string]interface{}{}
	} else if err := json.Unmarshal(arguments, &doc); err != nil {
		return fmt.Errorf("arguments must be valid json: %w", err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &SchemaValidationError{cause: err, Fields: fieldErrorsFromValidationError(doc, verr)}
		}
		return fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return nil
}

// fieldErrorsFromValidationError walks verr.Causes to the leaves (entries
// with no further causes are the actual constraint violations; internal
// nodes like "allOf failed" just group them) and reports each leaf's
// instance location, the JSON type found there, and the schema's message.
func fieldErrorsFromValidationError(doc interface{}, verr *jsonschema.ValidationError) []SchemaFieldError {
	var out []SchemaFieldError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			if field == "" {
				field = "(root)"
			}
			out = append(out, SchemaFieldError{
				Field:     strings.ReplaceAll(field, "/", "."),
				ValueType: valueTypeAtPointer(doc, e.InstanceLocation),
				Hint:      e.Message,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return out
}

// valueTypeAtPointer resolves a JSON Pointer (RFC 6901) path within an
// already-decoded document and names the JSON type found there, or
// "unknown" if the path doesn't resolve (e.g. an array index out of range).
// A missing required property is reported at its parent object's location,
// so it resolves to that object's type.
func valueTypeAtPointer(doc interface{}, pointer string) string {
	cur := doc
	for _, tok := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if tok == "" {
			continue
		}
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch v := cur.(type) {
		case map[string]interface{}:
			next, ok := v[tok]
			if !ok {
				return "unknown"
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(v) {
				return "unknown"
			}
			cur = v[idx]
		default:
			return "unknown"
		}
	}
	return jsonValueTypeOf(cur)
}

func jsonValueTypeOf(v interface{}) string {
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

// Raw returns the schema document as supplied at registration, or nil for
// the permissive default.
func (s *CompiledSchema) Raw() json.RawMessage {
	if s == nil {
		return nil
	}
	return s.raw
}

// ErrSchemaInvalid is wrapped by Validate failures.
var ErrSchemaInvalid = fmt.Errorf("arguments failed schema validation")
