package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ToolHandler executes a tool call against already-validated arguments and
// returns a JSON-marshalable result.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (interface{}, error)

// Tool is a registered MCP tool: its wire-stable name, description, input
// schema, and the handler that executes it.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     ToolHandler

	schema *CompiledSchema
}

// ToolDescriptor is the wire representation returned by "tools/list".
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolRegistry stores tools keyed by their wire-stable name, generalizing
// the teacher's tool registry to carry a compiled JSON Schema and the
// handler that executes the call, rather than search metadata alone.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewToolRegistry returns an empty, thread-safe tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Tool)}
}

// Register adds a single tool, compiling its input schema.
func (r *ToolRegistry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q: handler is required", t.Name)
	}
	schema, err := CompileSchema(t.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %q: %w", t.Name, err)
	}
	t.schema = schema

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = &t
	return nil
}

// RegisterAll registers a batch of tools atomically: either all succeed or
// none are added.
func (r *ToolRegistry) RegisterAll(tools []Tool) error {
	compiled := make([]*Tool, 0, len(tools))
	seen := make(map[string]bool, len(tools))
	for i := range tools {
		t := tools[i]
		if t.Name == "" {
			return fmt.Errorf("tool at index %d has empty name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate tool %q in batch", t.Name)
		}
		seen[t.Name] = true
		schema, err := CompileSchema(t.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %q: %w", t.Name, err)
		}
		t.schema = schema
		compiled = append(compiled, &t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range compiled {
		if _, exists := r.tools[t.Name]; exists {
			return fmt.Errorf("tool %q already registered", t.Name)
		}
	}
	for _, t := range compiled {
		r.tools[t.Name] = t
	}
	return nil
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns tool descriptors sorted by name, the shape "tools/list"
// returns on the wire.
func (r *ToolRegistry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolDescriptor{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute validates arguments against the tool's schema and invokes its
// handler.
func (r *ToolRegistry) Execute(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, NewToolError(MethodNotFound, fmt.Sprintf("unknown tool %q", name), nil)
	}
	if err := t.schema.Validate(arguments); err != nil {
		return nil, toolErrorFromSchemaErr(name, err)
	}
	return t.Handler(ctx, arguments)
}

// toolErrorFromSchemaErr builds an InvalidParams ToolError from a schema
// validation failure. When err is a *SchemaValidationError, its flattened
// field list is surfaced under Data["errors"] in message order, the same
// shape internal/tools' hand-built validators use for custom_metadata, so
// clients get one consistent multi-field diagnostic format regardless of
// which layer caught the problem.
func toolErrorFromSchemaErr(name string, err error) *ToolError {
	te := NewToolError(InvalidParams, fmt.Sprintf("tool %q: invalid arguments", name), err)
	var verr *SchemaValidationError
	if errors.As(err, &verr) {
		errs := make([]map[string]interface{}, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			entry := map[string]interface{}{"field": f.Field, "hint": f.Hint}
			if f.ValueType != "" {
				entry["value_type"] = f.ValueType
			}
			errs = append(errs, entry)
		}
		te.Data = map[string]interface{}{"errors": errs}
	}
	return te
}
