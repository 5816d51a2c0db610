package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/monitoring"
)

// MonitoringService implements the four monitoring tool handlers
// (get_usage_metrics, get_performance_metrics, get_cost_report,
// get_monitoring_status).
type MonitoringService struct {
	collector *monitoring.MetricsCollector
	usage     *monitoring.UsageTracker
	perf      *monitoring.PerformanceMonitor
	cost      *monitoring.CostCalculator
}

// NewMonitoringService wires a MonitoringService around its collaborators.
func NewMonitoringService(collector *monitoring.MetricsCollector, usage *monitoring.UsageTracker, perf *monitoring.PerformanceMonitor, cost *monitoring.CostCalculator) *MonitoringService {
	return &MonitoringService{collector: collector, usage: usage, perf: perf, cost: cost}
}

// GetUsageMetrics handles "get_usage_metrics".
func (s *MonitoringService) GetUsageMetrics(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	hourly, daily := s.usage.TemporalBuckets()
	now := time.Now().UTC()
	return map[string]interface{}{
		"active_documents": s.usage.ActiveDocuments(now),
		"hourly":           hourly,
		"daily":            daily,
	}, nil
}

// GetPerformanceMetrics handles "get_performance_metrics".
func (s *MonitoringService) GetPerformanceMetrics(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"active_operations":  s.perf.ActiveCount(),
		"percentiles_by_type": s.perf.PercentilesByType(),
		"history":            s.perf.History(),
	}, nil
}

// GetCostReport handles "get_cost_report".
func (s *MonitoringService) GetCostReport(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	return s.cost.Report(), nil
}

// GetMonitoringStatus handles "get_monitoring_status".
func (s *MonitoringService) GetMonitoringStatus(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"enabled":           s.collector.Enabled(),
		"running":           s.collector.Running(),
		"active_operations": s.perf.ActiveCount(),
	}, nil
}
