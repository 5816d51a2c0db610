package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ToolError is a tool-handler error carrying a JSON-RPC error code, so
// handlers can signal InvalidParams vs InternalError vs a timeout without
// the dispatcher having to guess from the error's dynamic type.
type ToolError struct {
	Code    int
	Message string
	Data    map[string]interface{}
	cause   error
}

func (e *ToolError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ToolError) Unwrap() error { return e.cause }

// NewToolError builds a ToolError with the given JSON-RPC code.
func NewToolError(code int, message string, cause error) *ToolError {
	return &ToolError{Code: code, Message: message, cause: cause}
}

// InvalidParamsError is a convenience constructor for the common case of
// rejecting malformed tool arguments.
func InvalidParamsError(format string, args ...interface{}) *ToolError {
	return &ToolError{Code: InvalidParams, Message: fmt.Sprintf(format, args...)}
}

// errorFromErr maps an arbitrary error into a JSON-RPC ErrorDetail,
// preserving a ToolError's code/data and falling back to InternalError
// (or Timeout, for context cancellation) otherwise.
func errorFromErr(err error) *ErrorDetail {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return &ErrorDetail{Code: toolErr.Code, Message: toolErr.Error(), Data: toolErr.Data}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrorDetail{Code: CodeTimeout, Message: "operation timed out"}
	}
	return &ErrorDetail{Code: InternalError, Message: err.Error()}
}

func rawID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
