package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contextframeai/contextframe-mcp/internal/ring"
)

// FlushSink receives batches of metrics for durable storage (columnar
// tables in the dataset, in the original design). Failures are logged and
// the collector continues; a failed flush never blocks record_*.
type FlushSink interface {
	FlushUsage(ctx context.Context, batch []UsageMetric) error
	FlushPerf(ctx context.Context, batch []PerfMetric) error
	FlushCost(ctx context.Context, batch []CostMetric) error
}

// HourlyRollup is one hour-bucketed aggregate produced by the aggregation
// task.
type HourlyRollup struct {
	Hour        string  `json:"hour"`
	UsageCount  int     `json:"usage_count"`
	PerfCount   int     `json:"perf_count"`
	ErrorCount  int     `json:"error_count"`
	CostTotal   float64 `json:"cost_total_usd"`
}

// MetricsCollector owns the three bounded ring buffers the rest of the
// monitoring subsystem reads from, plus the flush and aggregation
// background tasks. record_* is always non-blocking; when disabled every
// record_* is a no-op. State machine: Stopped -> Running -> Stopped.
type MetricsCollector struct {
	enabled bool
	sink    FlushSink
	logger  *zap.Logger

	usage *ring.Buffer[UsageMetric]
	perf  *ring.Buffer[PerfMetric]
	cost  *ring.Buffer[CostMetric]

	flushInterval time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	rollupMu      sync.Mutex
	rollups       map[string]*HourlyRollup
	retentionDays int
}

// NewMetricsCollector builds a MetricsCollector with three ring buffers of
// capacity maxMemoryMetrics each. sink may be nil (flush then becomes a
// no-op, useful for tests).
func NewMetricsCollector(enabled bool, maxMemoryMetrics int, flushInterval time.Duration, sink FlushSink, logger *zap.Logger) *MetricsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsCollector{
		enabled:       enabled,
		sink:          sink,
		logger:        logger,
		usage:         ring.New[UsageMetric](maxMemoryMetrics),
		perf:          ring.New[PerfMetric](maxMemoryMetrics),
		cost:          ring.New[CostMetric](maxMemoryMetrics),
		flushInterval: flushInterval,
		rollups:       make(map[string]*HourlyRollup),
	}
}

// SetRetentionDays bounds how long hourly rollup buckets survive in memory;
// aggregateLoop prunes buckets older than this on every tick. Zero (the
// default) disables pruning.
func (c *MetricsCollector) SetRetentionDays(days int) {
	c.rollupMu.Lock()
	c.retentionDays = days
	c.rollupMu.Unlock()
}

// Enabled reports whether record_* calls are actually collecting metrics.
func (c *MetricsCollector) Enabled() bool { return c.enabled }

// Running reports whether the background flush/aggregate loops are active.
func (c *MetricsCollector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *MetricsCollector) RecordUsage(m UsageMetric) {
	if !c.enabled {
		return
	}
	c.usage.Push(m)
}

func (c *MetricsCollector) RecordPerf(m PerfMetric) {
	if !c.enabled {
		return
	}
	c.perf.Push(m)
	c.rollupMu.Lock()
	key := m.Timestamp.UTC().Format("2006-01-02T15")
	r, ok := c.rollups[key]
	if !ok {
		r = &HourlyRollup{Hour: key}
		c.rollups[key] = r
	}
	r.PerfCount++
	if m.Status != StatusSuccess {
		r.ErrorCount++
	}
	c.rollupMu.Unlock()
}

func (c *MetricsCollector) RecordCost(m CostMetric) {
	if !c.enabled {
		return
	}
	c.cost.Push(m)
	c.rollupMu.Lock()
	key := m.Timestamp.UTC().Format("2006-01-02T15")
	r, ok := c.rollups[key]
	if !ok {
		r = &HourlyRollup{Hour: key}
		c.rollups[key] = r
	}
	r.CostTotal += m.AmountUSD
	c.rollupMu.Unlock()
}

// UsageSnapshot, PerfSnapshot, and CostSnapshot return a copy of the
// currently buffered metrics.
func (c *MetricsCollector) UsageSnapshot() []UsageMetric { return c.usage.Snapshot() }
func (c *MetricsCollector) PerfSnapshot() []PerfMetric   { return c.perf.Snapshot() }
func (c *MetricsCollector) CostSnapshot() []CostMetric   { return c.cost.Snapshot() }

// Rollups returns the current hourly rollup table.
func (c *MetricsCollector) Rollups() []HourlyRollup {
	c.rollupMu.Lock()
	defer c.rollupMu.Unlock()
	out := make([]HourlyRollup, 0, len(c.rollups))
	for _, r := range c.rollups {
		out = append(out, *r)
	}
	return out
}

// Start spawns the flush and aggregation background tasks. A no-op if
// monitoring is disabled or already running.
func (c *MetricsCollector) Start(ctx context.Context) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.wg.Add(2)
	go c.flushLoop(runCtx)
	go c.aggregateLoop(runCtx)
}

// Stop cancels both background tasks, waits for them to finish, and
// performs a final flush.
func (c *MetricsCollector) Stop(ctx context.Context) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.flush(ctx)
}

func (c *MetricsCollector) flushLoop(ctx context.Context) {
	defer c.wg.Done()
	interval := c.flushInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

func (c *MetricsCollector) flush(ctx context.Context) {
	if c.sink == nil {
		return
	}
	if usage := c.usage.Snapshot(); len(usage) > 0 {
		if err := c.sink.FlushUsage(ctx, usage); err != nil {
			c.logger.Warn("metrics flush: usage batch failed", zap.Error(err))
		}
	}
	if perf := c.perf.Snapshot(); len(perf) > 0 {
		if err := c.sink.FlushPerf(ctx, perf); err != nil {
			c.logger.Warn("metrics flush: perf batch failed", zap.Error(err))
		}
	}
	if cost := c.cost.Snapshot(); len(cost) > 0 {
		if err := c.sink.FlushCost(ctx, cost); err != nil {
			c.logger.Warn("metrics flush: cost batch failed", zap.Error(err))
		}
	}
}

func (c *MetricsCollector) aggregateLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pruneRollups(time.Now())
		}
	}
}

// pruneRollups drops hourly buckets older than the retention window.
// Rollups are keyed by "2006-01-02T15" (RecordPerf/RecordCost), so the
// cutoff is formatted the same way before comparing.
func (c *MetricsCollector) pruneRollups(now time.Time) {
	c.rollupMu.Lock()
	defer c.rollupMu.Unlock()
	if c.retentionDays <= 0 {
		return
	}
	cutoff := now.UTC().AddDate(0, 0, -c.retentionDays).Format("2006-01-02T15")
	for key := range c.rollups {
		if key < cutoff {
			delete(c.rollups, key)
		}
	}
}
