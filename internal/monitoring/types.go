// Package monitoring implements the metrics collector and the usage,
// performance, and cost trackers built on top of it.
package monitoring

import "time"

// UsageMetric records a single document or query access for later
// aggregation by UsageTracker.
type UsageMetric struct {
	DocID     string    `json:"doc_id,omitempty"`
	Operation string    `json:"operation"`
	AgentID   string    `json:"agent_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PerfStatus is the terminal state of a tracked operation.
type PerfStatus string

const (
	StatusSuccess PerfStatus = "success"
	StatusError   PerfStatus = "error"
	StatusTimeout PerfStatus = "timeout"
)

// PerfMetric records one completed operation's latency and outcome.
type PerfMetric struct {
	OperationID string     `json:"operation_id"`
	Type        string     `json:"type"`
	AgentID     string     `json:"agent_id,omitempty"`
	Status      PerfStatus `json:"status"`
	DurationMS  float64    `json:"duration_ms"`
	ResultSize  int        `json:"result_size,omitempty"`
	Error       string     `json:"error,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// CostType classifies a CostMetric.
type CostType string

const (
	CostLLM       CostType = "llm"
	CostStorage   CostType = "storage"
	CostBandwidth CostType = "bandwidth"
)

// CostMetric records one billable event.
type CostMetric struct {
	CostType  CostType  `json:"cost_type"`
	Provider  string    `json:"provider,omitempty"`
	Operation string    `json:"operation,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	AmountUSD float64   `json:"amount_usd"`
	Timestamp time.Time `json:"timestamp"`
}
