package monitoring

import (
	"sort"
	"sync/atomic"
	"time"
)

// ModelRate holds per-1000-token input/output USD pricing for one model.
type ModelRate struct {
	InputPer1K  float64
	OutputPer1K float64
}

var fallbackModelRate = ModelRate{InputPer1K: 0.01, OutputPer1K: 0.02}

// StoragePricing holds USD-per-GB rates for storage operations. Delete is
// free by default.
type StoragePricing struct {
	ReadPerGB   float64
	WritePerGB  float64
	DeletePerGB float64
}

var defaultStoragePricing = StoragePricing{ReadPerGB: 0.01, WritePerGB: 0.02, DeletePerGB: 0}

// CostCalculator prices LLM, storage, and bandwidth usage and rolls the
// resulting CostMetric stream up into reports.
type CostCalculator struct {
	collector  *MetricsCollector
	modelRates map[string]ModelRate
	storage    StoragePricing
	totalTokens int64
}

// NewCostCalculator wires a CostCalculator around collector. modelRates
// keys are "provider:model" (e.g. "openai:gpt-3.5-turbo"); a model absent
// from the map uses fallbackModelRate.
func NewCostCalculator(collector *MetricsCollector, modelRates map[string]ModelRate, storage StoragePricing) *CostCalculator {
	if modelRates == nil {
		modelRates = map[string]ModelRate{}
	}
	if storage == (StoragePricing{}) {
		storage = defaultStoragePricing
	}
	return &CostCalculator{collector: collector, modelRates: modelRates, storage: storage}
}

// LLMCost prices a single LLM call and records the resulting CostMetric.
func (c *CostCalculator) LLMCost(provider, model, agentID string, inputTokens, outputTokens int, ts time.Time) float64 {
	rate, ok := c.modelRates[provider+":"+model]
	if !ok {
		rate = fallbackModelRate
	}
	amount := float64(inputTokens)/1000.0*rate.InputPer1K + float64(outputTokens)/1000.0*rate.OutputPer1K
	atomic.AddInt64(&c.totalTokens, int64(inputTokens+outputTokens))
	c.collector.RecordCost(CostMetric{CostType: CostLLM, Provider: provider, Operation: model, AgentID: agentID, AmountUSD: amount, Timestamp: ts})
	return amount
}

// StorageCost prices a storage read/write/delete and records the resulting
// CostMetric. op must be one of "read", "write", "delete".
func (c *CostCalculator) StorageCost(op, agentID string, bytes int64, ts time.Time) float64 {
	gb := float64(bytes) / (1 << 30)
	var rate float64
	switch op {
	case "read":
		rate = c.storage.ReadPerGB
	case "write":
		rate = c.storage.WritePerGB
	case "delete":
		rate = c.storage.DeletePerGB
	}
	amount := gb * rate
	c.collector.RecordCost(CostMetric{CostType: CostStorage, Operation: op, AgentID: agentID, AmountUSD: amount, Timestamp: ts})
	return amount
}

// BandwidthCost prices egress bandwidth; ingress is not billed.
func (c *CostCalculator) BandwidthCost(agentID string, egressBytes int64, perGB float64, ts time.Time) float64 {
	gb := float64(egressBytes) / (1 << 30)
	amount := gb * perGB
	c.collector.RecordCost(CostMetric{CostType: CostBandwidth, Operation: "egress", AgentID: agentID, AmountUSD: amount, Timestamp: ts})
	return amount
}

// CostReport rolls cost metrics up by agent, operation, and provider, with
// a daily breakdown and spend recommendations.
type CostReport struct {
	TotalUSD        float64            `json:"total_usd"`
	ByAgent         map[string]float64 `json:"by_agent"`
	ByOperation     map[string]float64 `json:"by_operation"`
	ByProvider      map[string]float64 `json:"by_provider"`
	Daily           map[string]float64 `json:"daily_usd"`
	Recommendations []string           `json:"recommendations"`
	ProjectedMonthlyUSD float64        `json:"projected_monthly_usd"`
}

// Report builds a CostReport from the currently buffered cost metrics.
func (c *CostCalculator) Report() CostReport {
	metrics := c.collector.CostSnapshot()

	report := CostReport{
		ByAgent:     map[string]float64{},
		ByOperation: map[string]float64{},
		ByProvider:  map[string]float64{},
		Daily:       map[string]float64{},
	}

	var llmTotal float64
	providerTotals := map[string]float64{}

	for _, m := range metrics {
		report.TotalUSD += m.AmountUSD
		if m.AgentID != "" {
			report.ByAgent[m.AgentID] += m.AmountUSD
		}
		if m.Operation != "" {
			report.ByOperation[m.Operation] += m.AmountUSD
		}
		if m.Provider != "" {
			report.ByProvider[m.Provider] += m.AmountUSD
			providerTotals[m.Provider] += m.AmountUSD
		}
		report.Daily[m.Timestamp.UTC().Format("2006-01-02")] += m.AmountUSD
		if m.CostType == CostLLM {
			llmTotal += m.AmountUSD
		}
	}

	report.Recommendations = c.recommendations(report.TotalUSD, llmTotal, providerTotals, atomic.LoadInt64(&c.totalTokens))
	report.ProjectedMonthlyUSD = projectMonthly(report.Daily)

	return report
}

func (c *CostCalculator) recommendations(total, llmTotal float64, byProvider map[string]float64, totalTokens int64) []string {
	var recs []string
	if total > 0 && llmTotal/total > 0.7 {
		recs = append(recs, "LLM spend exceeds 70% of total cost; consider cheaper models for routine operations")
	}
	for provider, amount := range byProvider {
		if total > 0 && amount/total > 0.5 {
			recs = append(recs, "over 50% of spend is concentrated on provider "+provider+"; consider diversifying providers")
			break
		}
	}
	if totalTokens > 1_000_000 {
		recs = append(recs, "over 1M tokens processed; consider response caching for repeated prompts")
	}
	return recs
}

func projectMonthly(daily map[string]float64) float64 {
	if len(daily) == 0 {
		return 0
	}
	var sum float64
	for _, v := range daily {
		sum += v
	}
	avg := sum / float64(len(daily))
	return avg * 30
}

// sortedDays returns the daily breakdown's date keys in ascending order,
// useful for rendering CostReport.Daily deterministically.
func sortedDays(daily map[string]float64) []string {
	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}
