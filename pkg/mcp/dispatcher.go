package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ServerInfo is returned in the "initialize" handshake result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result payload of a successful "initialize" call.
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
	Capabilities    map[string]interface{} `json:"capabilities"`
}

const protocolVersion = "2024-11-05"

// Handler is the interface both transports drive. Dispatcher satisfies it
// directly; the monitoring integration shim wraps a Dispatcher to add
// operation tracking without the transports needing to know about it.
type Handler interface {
	Handle(ctx context.Context, raw json.RawMessage) (json.RawMessage, bool)
}

// Dispatcher routes JSON-RPC 2.0 requests to the tool and resource
// registries. It is transport-agnostic: both the stdio and HTTP servers
// funnel decoded requests through Handle.
type Dispatcher struct {
	Tools     *ToolRegistry
	Resources *ResourceRegistry
	Info      ServerInfo
	Logger    *zap.Logger

	// OnShutdown, if set, is invoked synchronously when a "shutdown" method
	// call is routed. It should cancel background tasks; it must not block
	// on in-flight tool executions draining, which is the caller's job.
	OnShutdown func(ctx context.Context)

	// DefaultToolTimeout bounds a "tools/call" dispatch when the incoming
	// request's context doesn't already carry a deadline. Zero disables the
	// bound entirely and the call runs with whatever context it was given.
	DefaultToolTimeout time.Duration
}

// NewDispatcher wires a Dispatcher around the given registries. The returned
// Dispatcher has no DefaultToolTimeout set; callers needing per-call
// deadlines set the field directly after construction, the same pattern
// used for OnShutdown.
func NewDispatcher(tools *ToolRegistry, resources *ResourceRegistry, info ServerInfo, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{Tools: tools, Resources: resources, Info: info, Logger: logger}
}

// Handle decodes a single JSON-RPC message, routes it, and returns the
// encoded response. The second return value is false for notifications,
// which never produce a response.
func (d *Dispatcher) Handle(ctx context.Context, raw json.RawMessage) (json.RawMessage, bool) {
	var req JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return d.errorResponse(nil, ParseError, "invalid JSON-RPC request", err), true
	}
	if req.JSONRPC != "2.0" {
		return d.errorResponse(req.ID, InvalidRequest, "jsonrpc must be \"2.0\"", nil), true
	}

	result, err := d.route(ctx, req)
	if req.IsNotification() {
		if err != nil {
			d.Logger.Warn("notification handler error", zap.String("method", req.Method), zap.Error(err))
		}
		return nil, false
	}
	if err != nil {
		detail := errorFromErr(err)
		return d.marshal(JSONRPCErrorResponse{JSONRPC: "2.0", ID: rawID(req.ID), Error: detail}), true
	}
	return d.marshal(JSONRPCResponse{JSONRPC: "2.0", ID: rawID(req.ID), Result: result}), true
}

func (d *Dispatcher) route(ctx context.Context, req JSONRPCRequest) (interface{}, error) {
	switch req.Method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      d.Info,
			Capabilities: map[string]interface{}{
				"tools":     map[string]interface{}{},
				"resources": map[string]interface{}{},
			},
		}, nil

	case "ping":
		return map[string]interface{}{}, nil

	case "shutdown":
		if d.OnShutdown != nil {
			d.OnShutdown(ctx)
		}
		return nil, nil

	case "tools/list":
		return map[string]interface{}{"tools": d.Tools.List()}, nil

	case "tools/call":
		var params ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, InvalidParamsError("invalid tools/call params: %v", err)
		}
		if params.Name == "" {
			return nil, InvalidParamsError("tools/call requires a tool name")
		}

		callCtx := ctx
		if _, hasDeadline := ctx.Deadline(); !hasDeadline && d.DefaultToolTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, d.DefaultToolTimeout)
			defer cancel()
		}

		value, err := d.Tools.Execute(callCtx, params.Name, params.Arguments)
		if err != nil {
			// A handler may wrap the context's deadline error inside its own
			// ToolError (e.g. a dataset call returning CodeDatasetError with
			// the deadline as its cause). Check the dispatch context directly
			// so a timeout always surfaces as CodeTimeout on the wire instead
			// of whatever code the handler happened to pick.
			if callCtx.Err() != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return nil, context.DeadlineExceeded
			}
			return nil, err
		}
		return TextResult(value)

	case "resources/list":
		return map[string]interface{}{"resources": d.Resources.List()}, nil

	case "resources/read":
		var params ResourceReadParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, InvalidParamsError("invalid resources/read params: %v", err)
		}
		content, err := d.Resources.Read(ctx, params.URI)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"contents": []ResourceContent{content}}, nil

	default:
		return nil, NewToolError(MethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
	}
}

func (d *Dispatcher) errorResponse(id json.RawMessage, code int, message string, cause error) json.RawMessage {
	detail := &ErrorDetail{Code: code, Message: message}
	if cause != nil {
		detail.Data = map[string]interface{}{"cause": cause.Error()}
	}
	return d.marshal(JSONRPCErrorResponse{JSONRPC: "2.0", ID: rawID(id), Error: detail})
}

func (d *Dispatcher) marshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		d.Logger.Error("failed to marshal JSON-RPC response", zap.Error(err))
		return json.RawMessage(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return b
}
