package tools

import (
	"context"
	"encoding/json"

	"github.com/contextframeai/contextframe-mcp/internal/analytics"
	"github.com/contextframeai/contextframe-mcp/internal/monitoring"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// AnalyticsService implements the eight analytics tool handlers
// (get_dataset_stats, analyze_usage, query_performance,
// relationship_analysis, optimize_storage, index_recommendations,
// benchmark_operations, export_metrics).
type AnalyticsService struct {
	stats        *analytics.StatsCollector
	usage        *analytics.UsageAnalyzer
	query        *analytics.QueryAnalyzer
	relationship *analytics.RelationshipAnalyzer
	optimizer    *analytics.StorageOptimizer
	advisor      *analytics.IndexAdvisor
	benchmark    *analytics.PerformanceBenchmark

	collector *monitoring.MetricsCollector
	perf      *monitoring.PerformanceMonitor
	cost      *monitoring.CostCalculator
}

// NewAnalyticsService wires an AnalyticsService around its collaborators.
// collector/perf/cost back export_metrics, which is grouped with the
// analytics tools on the wire but draws its data from the monitoring
// subsystem.
func NewAnalyticsService(stats *analytics.StatsCollector, usage *analytics.UsageAnalyzer, query *analytics.QueryAnalyzer, relationship *analytics.RelationshipAnalyzer, optimizer *analytics.StorageOptimizer, advisor *analytics.IndexAdvisor, benchmark *analytics.PerformanceBenchmark, collector *monitoring.MetricsCollector, perf *monitoring.PerformanceMonitor, cost *monitoring.CostCalculator) *AnalyticsService {
	return &AnalyticsService{
		stats: stats, usage: usage, query: query, relationship: relationship,
		optimizer: optimizer, advisor: advisor, benchmark: benchmark,
		collector: collector, perf: perf, cost: cost,
	}
}

// GetDatasetStats handles "get_dataset_stats".
func (s *AnalyticsService) GetDatasetStats(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		IncludeDetails       bool `json:"include_details,omitempty"`
		IncludeContent       bool `json:"include_content,omitempty"`
		IncludeRelationships bool `json:"include_relationships,omitempty"`
		SampleSize           int  `json:"sample_size,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	report, err := s.stats.Collect(ctx, analytics.StatsOptions{
		IncludeContent:       args.IncludeContent || args.IncludeDetails,
		IncludeRelationships: args.IncludeRelationships || args.IncludeDetails,
		IncludeFragments:     args.IncludeDetails,
		SampleSize:           args.SampleSize,
	})
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, "failed to collect dataset stats", err)
	}
	return report, nil
}

// AnalyzeUsage handles "analyze_usage".
func (s *AnalyticsService) AnalyzeUsage(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	return s.usage.Analyze(ctx), nil
}

// QueryPerformance handles "query_performance".
func (s *AnalyticsService) QueryPerformance(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	return s.query.Analyze(), nil
}

// RelationshipAnalysis handles "relationship_analysis".
func (s *AnalyticsService) RelationshipAnalysis(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	report, err := s.relationship.Analyze(ctx)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, "failed to analyze relationships", err)
	}
	return report, nil
}

// OptimizeStorage handles "optimize_storage".
func (s *AnalyticsService) OptimizeStorage(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Operation analytics.OptimizeOperation `json:"operation"`
		DryRun    bool                        `json:"dry_run,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.Operation == "" {
		return nil, mcp.InvalidParamsError("operation is required")
	}
	result, err := s.optimizer.Run(ctx, args.Operation, args.DryRun)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, "failed to optimize storage", err)
	}
	return result, nil
}

// IndexRecommendations handles "index_recommendations".
func (s *AnalyticsService) IndexRecommendations(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		AnalyzeQueries bool                   `json:"analyze_queries,omitempty"`
		Workload       analytics.WorkloadType `json:"workload,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.Workload == "" {
		args.Workload = analytics.WorkloadMixed
	}
	recs, err := s.advisor.Recommend(ctx, args.AnalyzeQueries, args.Workload)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, "failed to compute index recommendations", err)
	}
	return map[string]interface{}{"recommendations": recs}, nil
}

// BenchmarkOperations handles "benchmark_operations".
func (s *AnalyticsService) BenchmarkOperations(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Operation   analytics.BenchmarkOp `json:"operation"`
		SampleSize  int                   `json:"sample_size,omitempty"`
		Concurrency int                   `json:"concurrency,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.Operation == "" {
		return nil, mcp.InvalidParamsError("operation is required")
	}
	result, err := s.benchmark.Run(ctx, args.Operation, args.SampleSize, args.Concurrency)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeDatasetError, "failed to run benchmark", err)
	}
	return result, nil
}

// ExportMetrics handles "export_metrics".
func (s *AnalyticsService) ExportMetrics(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Format string `json:"format,omitempty"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, mcp.InvalidParamsError("invalid arguments: %v", err)
	}
	if args.Format == "" {
		args.Format = "json"
	}

	snapshot := monitoring.MonitoringSnapshot{
		Usage:       s.collector.UsageSnapshot(),
		Perf:        s.collector.PerfSnapshot(),
		Cost:        s.collector.CostSnapshot(),
		Percentiles: s.perf.PercentilesByType(),
		CostReport:  s.cost.Report(),
	}

	exporter := monitoring.NewExporter(monitoring.ExportFormat(args.Format))
	data, err := exporter.Export(snapshot)
	if err != nil {
		return nil, mcp.NewToolError(mcp.CodeToolError, "failed to export metrics", err)
	}

	if args.Format == "json" {
		return json.RawMessage(data), nil
	}
	return map[string]string{"format": args.Format, "data": string(data)}, nil
}
