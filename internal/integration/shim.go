// Package integration wraps the JSON-RPC dispatcher and tool registry with
// automatic operation tracking and cost estimation, so every inbound
// message is observed by the monitoring subsystem without each tool
// handler needing to know monitoring exists.
package integration

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/contextframeai/contextframe-mcp/internal/monitoring"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// llmTools are the tool names whose handlers invoke an LLM, and therefore
// get an estimated cost event recorded against the configured default
// enhancement model.
var llmTools = map[string]bool{
	"enhance_context":    true,
	"extract_metadata":   true,
	"generate_tags":      true,
	"improve_title":      true,
	"enhance_for_purpose": true,
	"batch_enhance":      true,
}

// Shim wraps a *mcp.Dispatcher, implementing mcp.Handler itself so it can
// be dropped into either transport unmodified.
type Shim struct {
	inner   mcp.Handler
	perf    *monitoring.PerformanceMonitor
	usage   *monitoring.UsageTracker
	cost    *monitoring.CostCalculator
	logger  *zap.Logger

	provider     string
	defaultModel string

	seq uint64
}

// New wraps inner with operation tracking. defaultModelKey is a
// "provider:model" key used to price LLM-invoking tool calls whose actual
// token usage the tool handler itself does not report.
func New(inner mcp.Handler, perf *monitoring.PerformanceMonitor, usage *monitoring.UsageTracker, cost *monitoring.CostCalculator, defaultModelKey string, logger *zap.Logger) *Shim {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider, model, _ := strings.Cut(defaultModelKey, ":")
	return &Shim{inner: inner, perf: perf, usage: usage, cost: cost, logger: logger, provider: provider, defaultModel: model}
}

var _ mcp.Handler = (*Shim)(nil)

func (s *Shim) nextOperationID() string {
	n := atomic.AddUint64(&s.seq, 1)
	return "op-" + strconv.FormatUint(n, 10)
}

// Handle implements mcp.Handler. It starts a PerformanceMonitor operation
// keyed by JSON-RPC method before delegating to the inner dispatcher, ends
// it with the observed outcome, and layers tool-specific usage and cost
// tracking on top for tools/call requests.
func (s *Shim) Handle(ctx context.Context, raw json.RawMessage) (json.RawMessage, bool) {
	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return s.inner.Handle(ctx, raw)
	}

	agentID := extractAgentID(raw, req.Params)
	opType := req.Method
	var toolParams mcp.ToolCallParams
	isToolCall := req.Method == "tools/call"
	if isToolCall {
		_ = json.Unmarshal(req.Params, &toolParams)
		if toolParams.Name != "" {
			opType = "tools/call:" + toolParams.Name
		}
	}

	opID := s.nextOperationID()
	s.perf.StartOperation(opID, opType, agentID, nil)

	resp, hasResponse := s.inner.Handle(ctx, raw)

	status, errMsg := monitoring.StatusSuccess, ""
	if hasResponse {
		status, errMsg = classify(resp)
	}
	s.perf.EndOperation(opID, status, len(resp), errMsg)

	if isToolCall && hasResponse {
		s.recordToolSideEffects(toolParams, resp, agentID)
	}

	return resp, hasResponse
}

func classify(resp json.RawMessage) (monitoring.PerfStatus, string) {
	var envelope struct {
		Error *mcp.ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return monitoring.StatusSuccess, ""
	}
	if envelope.Error == nil {
		return monitoring.StatusSuccess, ""
	}
	if envelope.Error.Code == mcp.CodeTimeout {
		return monitoring.StatusTimeout, envelope.Error.Message
	}
	return monitoring.StatusError, envelope.Error.Message
}

// recordToolSideEffects records per-document usage events and, for
// LLM-invoking tools, an estimated cost event. Estimation uses the
// documented heuristic: input tokens from byte length / 4, output tokens
// from half that, since tool handlers here do not currently surface actual
// token counts from the underlying LLM response.
func (s *Shim) recordToolSideEffects(params mcp.ToolCallParams, resp json.RawMessage, agentID string) {
	switch params.Name {
	case "get_document":
		if id := stringArg(params.Arguments, "document_id"); id != "" {
			s.usage.Touch(id, "read", agentID, true, time.Now())
		}
	case "update_document":
		if id := stringArg(params.Arguments, "document_id"); id != "" {
			s.usage.Touch(id, "update", agentID, true, time.Now())
		}
	case "search_documents":
		for _, id := range resultDocumentIDs(resp) {
			s.usage.Touch(id, "search_hit", agentID, true, time.Now())
		}
	}

	if llmTools[params.Name] && s.cost != nil {
		inputTokens := len(params.Arguments) / 4
		outputTokens := inputTokens / 2
		s.cost.LLMCost(s.provider, s.defaultModel, agentID, inputTokens, outputTokens, time.Now())
	}
}

func stringArg(raw json.RawMessage, key string) string {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

// resultDocumentIDs extracts document UUIDs from a search_documents
// tools/call response, whose text content is a JSON object of the shape
// {"documents":[{"uuid":"...", ...}, ...]}.
func resultDocumentIDs(resp json.RawMessage) []string {
	var envelope struct {
		Result mcp.ToolCallResult `json:"result"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil || len(envelope.Result.Content) == 0 {
		return nil
	}
	var body struct {
		Documents []struct {
			UUID string `json:"uuid"`
		} `json:"documents"`
	}
	if err := json.Unmarshal([]byte(envelope.Result.Content[0].Text), &body); err != nil {
		return nil
	}
	ids := make([]string, 0, len(body.Documents))
	for _, r := range body.Documents {
		if r.UUID != "" {
			ids = append(ids, r.UUID)
		}
	}
	return ids
}

// extractAgentID resolves the calling agent's identity, checked in the
// order: a top-level "agent_id" on the JSON-RPC request envelope itself,
// then "agent_id" within params, then "agent_id" within params.metadata.
func extractAgentID(raw json.RawMessage, rawParams json.RawMessage) string {
	var envelope struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.AgentID != "" {
		return envelope.AgentID
	}

	var params struct {
		AgentID  string `json:"agent_id"`
		Metadata struct {
			AgentID string `json:"agent_id"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(rawParams, &params); err == nil {
		if params.AgentID != "" {
			return params.AgentID
		}
		if params.Metadata.AgentID != "" {
			return params.Metadata.AgentID
		}
	}
	return ""
}
