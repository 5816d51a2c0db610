// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 8)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	// Agent context (per spec.md agent_id extraction order)
	if agentID := AgentIDFromContext(ctx); agentID != "" {
		fields = append(fields, zap.String("agent_id", agentID))
	}

	// Operation context
	if operationID := OperationIDFromContext(ctx); operationID != "" {
		fields = append(fields, zap.String("operation.id", operationID))
	}

	// Request ID
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

// Context key types
type agentCtxKey struct{}
type operationCtxKey struct{}
type requestCtxKey struct{}

// Validation constants
const (
	maxFieldLen = 64
	maxIDLen    = 128
)

var (
	// idPattern allows alphanumeric, hyphen, underscore, colon (tool names like "openai:gpt-4")
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)
)

// validateID validates an agent, operation, or request ID.
func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}

// AgentIDFromContext extracts the calling agent's identifier from context.
//
// The value is whatever WithAgentID stored; an empty string when none was
// stored. The integration shim resolves agent identity from the request on
// its own and does not call WithAgentID.
func AgentIDFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(agentCtxKey{}).(string); ok {
		return a
	}
	return ""
}

// WithAgentID adds an agent ID to context. Panics on invalid input since
// callers control this value internally (it is never taken from user JSON
// without validation upstream).
func WithAgentID(ctx context.Context, agentID string) context.Context {
	if agentID == "" {
		return ctx
	}
	if err := validateID(agentID, "agentID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, agentCtxKey{}, agentID)
}

// OperationIDFromContext extracts the active operation ID from context.
func OperationIDFromContext(ctx context.Context) string {
	if o, ok := ctx.Value(operationCtxKey{}).(string); ok {
		return o
	}
	return ""
}

// WithOperationID adds an operation ID to context.
func WithOperationID(ctx context.Context, operationID string) context.Context {
	if err := validateID(operationID, "operationID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, operationCtxKey{}, operationID)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validateID(requestID, "requestID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a default nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
