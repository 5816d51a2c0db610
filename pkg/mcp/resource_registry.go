package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ResourceHandler produces the content of a resource when read.
type ResourceHandler func(ctx context.Context, uri string) (ResourceContent, error)

// Resource is a registered MCP resource: a URI, descriptive metadata, and
// the handler that reads its current content.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Handler     ResourceHandler
}

// ResourceDescriptor is the wire representation returned by
// "resources/list".
type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceRegistry is the URI-keyed analog of ToolRegistry. The minimum set
// this server always registers is contextframe://dataset/info and
// contextframe://dataset/schema.
type ResourceRegistry struct {
	mu        sync.RWMutex
	resources map[string]*Resource
}

// NewResourceRegistry returns an empty, thread-safe resource registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{resources: make(map[string]*Resource)}
}

// Register adds a single resource.
func (r *ResourceRegistry) Register(res Resource) error {
	if res.URI == "" {
		return fmt.Errorf("resource uri is required")
	}
	if res.Handler == nil {
		return fmt.Errorf("resource %q: handler is required", res.URI)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resources[res.URI]; exists {
		return fmt.Errorf("resource %q already registered", res.URI)
	}
	r.resources[res.URI] = &res
	return nil
}

// Get retrieves a resource by URI.
func (r *ResourceRegistry) Get(uri string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[uri]
	return res, ok
}

// List returns resource descriptors sorted by URI.
func (r *ResourceRegistry) List() []ResourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ResourceDescriptor, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, ResourceDescriptor{URI: res.URI, Name: res.Name, Description: res.Description, MimeType: res.MimeType})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Read looks up uri and invokes its handler.
func (r *ResourceRegistry) Read(ctx context.Context, uri string) (ResourceContent, error) {
	res, ok := r.Get(uri)
	if !ok {
		return ResourceContent{}, NewToolError(CodeNotFound, fmt.Sprintf("unknown resource %q", uri), nil)
	}
	return res.Handler(ctx, uri)
}
