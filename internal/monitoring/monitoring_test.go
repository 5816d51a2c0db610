package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSink struct{}

func (noopSink) FlushUsage(ctx context.Context, batch []UsageMetric) error { return nil }
func (noopSink) FlushPerf(ctx context.Context, batch []PerfMetric) error   { return nil }
func (noopSink) FlushCost(ctx context.Context, batch []CostMetric) error   { return nil }

func TestMetricsCollector_DisabledIsNoOp(t *testing.T) {
	c := NewMetricsCollector(false, 100, time.Second, noopSink{}, nil)
	c.RecordUsage(UsageMetric{DocID: "d1", Operation: "read", Timestamp: time.Now()})
	assert.Empty(t, c.UsageSnapshot())
}

func TestMetricsCollector_RecordAndSnapshot(t *testing.T) {
	c := NewMetricsCollector(true, 10, time.Second, noopSink{}, nil)
	now := time.Now()
	c.RecordPerf(PerfMetric{OperationID: "op1", Type: "search", Status: StatusSuccess, DurationMS: 5, Timestamp: now})
	c.RecordCost(CostMetric{CostType: CostLLM, AmountUSD: 0.01, Timestamp: now})

	assert.Len(t, c.PerfSnapshot(), 1)
	assert.Len(t, c.CostSnapshot(), 1)

	rollups := c.Rollups()
	require.Len(t, rollups, 1)
	assert.Equal(t, 1, rollups[0].PerfCount)
	assert.InDelta(t, 0.01, rollups[0].CostTotal, 1e-9)
}

func TestMetricsCollector_RingDropsOldest(t *testing.T) {
	c := NewMetricsCollector(true, 3, time.Second, noopSink{}, nil)
	for i := 0; i < 5; i++ {
		c.RecordUsage(UsageMetric{DocID: string(rune('a' + i)), Timestamp: time.Now()})
	}
	snap := c.UsageSnapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "c", snap[0].DocID)
	assert.Equal(t, "e", snap[2].DocID)
}

func TestMetricsCollector_StartStopLifecycle(t *testing.T) {
	c := NewMetricsCollector(true, 10, 10*time.Millisecond, noopSink{}, nil)
	ctx := context.Background()
	c.Start(ctx)
	c.Start(ctx) // second call is a no-op, must not deadlock or panic
	c.RecordUsage(UsageMetric{DocID: "d1", Timestamp: time.Now()})
	c.Stop(ctx)
	c.Stop(ctx) // second call is a no-op
}

func TestUsageTracker_TouchTracksSuccessRate(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	tr := NewUsageTracker(c, time.Hour)

	now := time.Now()
	tr.Touch("doc1", "read", "agent1", true, now)
	tr.Touch("doc1", "read", "agent1", false, now)

	assert.InDelta(t, 0.5, tr.SuccessRate("doc1"), 1e-9)
	assert.Contains(t, tr.ActiveDocuments(now), "doc1")
}

func TestPerformanceMonitor_StartEndOperation(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	pm := NewPerformanceMonitor(c, nil)

	pm.StartOperation("op1", "search", "agent1", nil)
	assert.Equal(t, 1, pm.ActiveCount())

	pm.EndOperation("op1", StatusSuccess, 128, "")
	assert.Equal(t, 0, pm.ActiveCount())

	pct := pm.PercentilesByType()
	require.Contains(t, pct, "search")
	assert.Equal(t, 1, pct["search"].Count)
	assert.Equal(t, 0.0, pct["search"].ErrorRate)
}

func TestPerformanceMonitor_EndUnknownIsNoOp(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	pm := NewPerformanceMonitor(c, nil)
	pm.EndOperation("missing", StatusSuccess, 0, "")
	assert.Empty(t, pm.PercentilesByType())
}

func TestCostCalculator_LLMCostMatchesWorkedExample(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	rates := map[string]ModelRate{"openai:gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015}}
	cc := NewCostCalculator(c, rates, StoragePricing{})

	amount := cc.LLMCost("openai", "gpt-3.5-turbo", "agent1", 1000, 500, time.Now())
	assert.InDelta(t, 0.00125, amount, 1e-9)
}

func TestCostCalculator_UnknownModelUsesFallback(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	cc := NewCostCalculator(c, nil, StoragePricing{})

	amount := cc.LLMCost("acme", "mystery-model", "agent1", 1000, 1000, time.Now())
	assert.InDelta(t, 0.01+0.02, amount, 1e-9)
}

func TestCostCalculator_ReportRollsUpByAgentAndProvider(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	cc := NewCostCalculator(c, nil, StoragePricing{})

	now := time.Now()
	cc.LLMCost("openai", "gpt-3.5-turbo", "agent1", 1000, 0, now)
	cc.StorageCost("write", "agent2", 1<<30, now)

	report := cc.Report()
	assert.Contains(t, report.ByAgent, "agent1")
	assert.Contains(t, report.ByAgent, "agent2")
	assert.Contains(t, report.ByProvider, "openai")
	assert.Greater(t, report.TotalUSD, 0.0)
}

func TestMetricsCollector_PruneRollupsDropsOnlyStaleBuckets(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	c.SetRetentionDays(30)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c.RecordPerf(PerfMetric{OperationID: "stale", Status: StatusSuccess, Timestamp: now.AddDate(0, 0, -31)})
	c.RecordPerf(PerfMetric{OperationID: "fresh", Status: StatusSuccess, Timestamp: now.AddDate(0, 0, -1)})
	require.Len(t, c.Rollups(), 2)

	c.pruneRollups(now)

	rollups := c.Rollups()
	require.Len(t, rollups, 1)
	assert.Equal(t, now.AddDate(0, 0, -1).Format("2006-01-02T15"), rollups[0].Hour)
}

func TestMetricsCollector_PruneRollupsNoOpWhenRetentionUnset(t *testing.T) {
	c := NewMetricsCollector(true, 100, time.Second, noopSink{}, nil)
	c.RecordPerf(PerfMetric{OperationID: "old", Status: StatusSuccess, Timestamp: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)})

	c.pruneRollups(time.Now())

	assert.Len(t, c.Rollups(), 1)
}

func TestExporter_JSONAndCSV(t *testing.T) {
	snapshot := MonitoringSnapshot{
		Percentiles: map[string]TypePercentiles{"search": {P50: 1, P90: 2, P99: 3, Mean: 1.5, Count: 10}},
		CostReport:  CostReport{TotalUSD: 1.23},
	}

	jsonOut, err := NewExporter(ExportJSON).Export(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(jsonOut), "total_usd")

	csvOut, err := NewExporter(ExportCSV).Export(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(csvOut), "metric_type")

	promOut, err := NewExporter(ExportPrometheus).Export(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(promOut), "contextframe_cost_total_usd")
}
