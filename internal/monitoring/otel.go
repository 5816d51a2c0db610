package monitoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// OTelBridge periodically dual-writes MetricsCollector's rollup totals into
// OpenTelemetry counters, so a cluster running an OTel collector sees the
// same operation/error/cost totals the in-process monitoring tools report,
// without every call site needing to know OTel exists.
type OTelBridge struct {
	collector *MetricsCollector

	opsTotal    metric.Int64Counter
	errorsTotal metric.Int64Counter
	costTotal   metric.Float64Counter

	lastOps, lastErrors int64
	lastCost            float64
}

// NewOTelBridge registers the dual-write instruments against meter. meter is
// typically obtained from the global MeterProvider configured at startup;
// passing the no-op provider's meter disables export without changing call
// sites.
func NewOTelBridge(meter metric.Meter, collector *MetricsCollector) (*OTelBridge, error) {
	opsTotal, err := meter.Int64Counter("contextframe.operations.total",
		metric.WithDescription("Total JSON-RPC operations observed by the performance monitor"))
	if err != nil {
		return nil, err
	}
	errorsTotal, err := meter.Int64Counter("contextframe.operations.errors",
		metric.WithDescription("Total JSON-RPC operations that ended in error or timeout"))
	if err != nil {
		return nil, err
	}
	costTotal, err := meter.Float64Counter("contextframe.cost.usd_total",
		metric.WithDescription("Total estimated cost in USD recorded by the cost calculator"))
	if err != nil {
		return nil, err
	}
	return &OTelBridge{collector: collector, opsTotal: opsTotal, errorsTotal: errorsTotal, costTotal: costTotal}, nil
}

// Push adds the delta since the last push to the OTel counters. Counters are
// monotonic, so only the increase since the previous call is recorded.
func (b *OTelBridge) Push(ctx context.Context) {
	var ops, errs int64
	var cost float64
	for _, r := range b.collector.Rollups() {
		ops += int64(r.PerfCount)
		errs += int64(r.ErrorCount)
		cost += r.CostTotal
	}

	if delta := ops - b.lastOps; delta > 0 {
		b.opsTotal.Add(ctx, delta)
		b.lastOps = ops
	}
	if delta := errs - b.lastErrors; delta > 0 {
		b.errorsTotal.Add(ctx, delta)
		b.lastErrors = errs
	}
	if delta := cost - b.lastCost; delta > 0 {
		b.costTotal.Add(ctx, delta)
		b.lastCost = cost
	}
}

// Run pushes on every tick of interval until ctx is canceled.
func (b *OTelBridge) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Push(ctx)
		}
	}
}
