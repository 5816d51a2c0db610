package tools

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/contextframeai/contextframe-mcp/internal/analytics"
	"github.com/contextframeai/contextframe-mcp/internal/config"
	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/internal/enhance"
	"github.com/contextframeai/contextframe-mcp/internal/monitoring"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

// Wired bundles the registries and monitoring collaborators the dispatcher
// and the integration shim need, so cmd/contextframe-mcp's wiring code has
// a single return value to plug into both.
type Wired struct {
	Tools     *mcp.ToolRegistry
	Resources *mcp.ResourceRegistry
	Collector *monitoring.MetricsCollector
	Perf      *monitoring.PerformanceMonitor
	Usage     *monitoring.UsageTracker
	Cost      *monitoring.CostCalculator
}

// Wire builds every tool handler and resource reader named in the
// canonical tool table and registers them against fresh registries. It
// also constructs the monitoring collaborators, since export_metrics and
// the four monitoring tools are backed directly by them.
func Wire(cfg *config.Config, ds dataset.Dataset, logger *zap.Logger) (*Wired, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ds = dataset.NewPooled(ds, dataset.NewPool(cfg.Dataset.MaxWorkers))

	collector := monitoring.NewMetricsCollector(
		cfg.Monitoring.Enabled,
		cfg.Monitoring.MaxMemoryMetrics,
		time.Duration(cfg.Monitoring.FlushIntervalSeconds)*time.Second,
		nil,
		logger,
	)
	collector.SetRetentionDays(cfg.Monitoring.RetentionDays)
	perf := monitoring.NewPerformanceMonitor(collector, nil)
	usage := monitoring.NewUsageTracker(collector, 24*time.Hour)
	cost := monitoring.NewCostCalculator(collector, modelRatesFromConfig(cfg.Pricing), storagePricingFromConfig(cfg.Pricing))

	statsCollector := analytics.NewStatsCollector(ds)
	usageAnalyzer := analytics.NewUsageAnalyzer(ds)
	queryAnalyzer := analytics.NewQueryAnalyzer()
	relationshipAnalyzer := analytics.NewRelationshipAnalyzer(ds)
	optimizer := analytics.NewStorageOptimizer(ds)
	advisor := analytics.NewIndexAdvisor(ds, queryAnalyzer)
	benchmark := analytics.NewPerformanceBenchmark(ds)

	embedder, err := embedderFromConfig(cfg.Providers)
	if err != nil {
		logger.Warn("embedding provider unavailable, vector search and embed-on-extract are disabled", zap.Error(err))
	}
	caller, err := callerFromConfig(cfg.Providers)
	if err != nil {
		logger.Warn("enhancement tools disabled", zap.Error(err))
	}

	tools := mcp.NewToolRegistry()
	if err := registerCRUDAndSearchTools(tools, ds, embedder); err != nil {
		return nil, err
	}
	if err := registerAnalyticsTools(tools, statsCollector, usageAnalyzer, queryAnalyzer, relationshipAnalyzer, optimizer, advisor, benchmark, collector, perf, cost); err != nil {
		return nil, err
	}
	if err := registerMonitoringTools(tools, collector, usage, perf, cost); err != nil {
		return nil, err
	}
	if err := registerExtractionTools(tools, ds, embedder); err != nil {
		return nil, err
	}
	if caller != nil {
		if err := registerEnhanceTools(tools, ds, caller); err != nil {
			return nil, err
		}
	} else {
		logger.Info("no LLM provider configured; enhance_context, extract_metadata, generate_tags, improve_title, enhance_for_purpose, and batch_enhance are omitted from tools/list")
	}

	resources := mcp.NewResourceRegistry()
	if err := registerResources(resources, ds, statsCollector); err != nil {
		return nil, err
	}

	return &Wired{Tools: tools, Resources: resources, Collector: collector, Perf: perf, Usage: usage, Cost: cost}, nil
}

func modelRatesFromConfig(p config.PricingConfig) map[string]monitoring.ModelRate {
	rates := make(map[string]monitoring.ModelRate, len(p.LLMPricing))
	for key, v := range p.LLMPricing {
		rates[key] = monitoring.ModelRate{InputPer1K: v.InputCostPer1K, OutputPer1K: v.OutputCostPer1K}
	}
	return rates
}

// storagePricingFromConfig maps the operational per-call pricing carried in
// PricingConfig.StoragePricing onto monitoring's per-GB model. The
// original's fields are already expressed as small fractions of a cent per
// call tuned against a nominal multi-KB document, so they are used
// directly as the per-GB rate rather than rescaled by an assumed object
// size; see DESIGN.md for the worked justification.
func storagePricingFromConfig(p config.PricingConfig) monitoring.StoragePricing {
	return monitoring.StoragePricing{
		ReadPerGB:   p.StoragePricing.ReadCostPerOp,
		WritePerGB:  p.StoragePricing.WriteCostPerOp,
		DeletePerGB: p.StoragePricing.DeleteCostPerOp,
	}
}

func embedderFromConfig(p config.ProvidersConfig) (enhance.Embedder, error) {
	if !p.OpenAIAPIKey.IsSet() {
		return nil, nil
	}
	return enhance.NewOpenAIEmbedder(p.OpenAIAPIKey, p.EmbedModel)
}

func callerFromConfig(p config.ProvidersConfig) (enhance.Caller, error) {
	if !p.Enabled() {
		return nil, nil
	}
	provider, model, _ := strings.Cut(p.EnhanceModel, ":")
	switch provider {
	case "anthropic":
		return enhance.NewAnthropicCaller(p.AnthropicKey, model, p.RateLimitRPS, p.RateLimitBurst)
	default:
		return enhance.NewOpenAICaller(p.OpenAIAPIKey, model, p.RateLimitRPS, p.RateLimitBurst)
	}
}

func registerCRUDAndSearchTools(tools *mcp.ToolRegistry, ds dataset.Dataset, embedder enhance.Embedder) error {
	crud := NewCRUDService(ds)
	search := NewSearchService(ds, embedder)
	return tools.RegisterAll([]mcp.Tool{
		{Name: "add_document", Description: "Add a new document to the dataset.", InputSchema: rawSchema(addDocumentSchema), Handler: crud.AddDocument},
		{Name: "get_document", Description: "Retrieve a document by id.", InputSchema: rawSchema(documentIDSchema), Handler: crud.GetDocument},
		{Name: "update_document", Description: "Update fields of an existing document.", InputSchema: rawSchema(updateDocumentSchema), Handler: crud.UpdateDocument},
		{Name: "delete_document", Description: "Delete a document by id.", InputSchema: rawSchema(documentIDSchema), Handler: crud.DeleteDocument},
		{Name: "search_documents", Description: "Search documents by vector similarity, full text, or both.", InputSchema: rawSchema(searchDocumentsSchema), Handler: search.SearchDocuments},
	})
}

func registerAnalyticsTools(tools *mcp.ToolRegistry, stats *analytics.StatsCollector, usage *analytics.UsageAnalyzer, query *analytics.QueryAnalyzer, relationship *analytics.RelationshipAnalyzer, optimizer *analytics.StorageOptimizer, advisor *analytics.IndexAdvisor, benchmark *analytics.PerformanceBenchmark, collector *monitoring.MetricsCollector, perf *monitoring.PerformanceMonitor, cost *monitoring.CostCalculator) error {
	svc := NewAnalyticsService(stats, usage, query, relationship, optimizer, advisor, benchmark, collector, perf, cost)
	return tools.RegisterAll([]mcp.Tool{
		{Name: "get_dataset_stats", Description: "Summarize dataset size, storage layout, and content composition.", InputSchema: rawSchema(getDatasetStatsSchema), Handler: svc.GetDatasetStats},
		{Name: "analyze_usage", Description: "Report hot documents and access distribution.", InputSchema: rawSchema(emptyObjectSchema), Handler: svc.AnalyzeUsage},
		{Name: "query_performance", Description: "Report query latency percentiles and slow queries.", InputSchema: rawSchema(emptyObjectSchema), Handler: svc.QueryPerformance},
		{Name: "relationship_analysis", Description: "Analyze the relationship graph: components, cycles, orphans.", InputSchema: rawSchema(emptyObjectSchema), Handler: svc.RelationshipAnalysis},
		{Name: "optimize_storage", Description: "Run compact, vacuum, or reindex against the dataset.", InputSchema: rawSchema(optimizeStorageSchema), Handler: svc.OptimizeStorage},
		{Name: "index_recommendations", Description: "Recommend scalar, FTS, or vector indices to create.", InputSchema: rawSchema(indexRecommendationsSchema), Handler: svc.IndexRecommendations},
		{Name: "benchmark_operations", Description: "Benchmark search, insert, update, or scan latency.", InputSchema: rawSchema(benchmarkOperationsSchema), Handler: svc.BenchmarkOperations},
		{Name: "export_metrics", Description: "Export the current monitoring snapshot as json, prometheus, or csv.", InputSchema: rawSchema(exportMetricsSchema), Handler: svc.ExportMetrics},
	})
}

func registerMonitoringTools(tools *mcp.ToolRegistry, collector *monitoring.MetricsCollector, usage *monitoring.UsageTracker, perf *monitoring.PerformanceMonitor, cost *monitoring.CostCalculator) error {
	svc := NewMonitoringService(collector, usage, perf, cost)
	return tools.RegisterAll([]mcp.Tool{
		{Name: "get_usage_metrics", Description: "Report active documents and temporal usage buckets.", InputSchema: rawSchema(emptyObjectSchema), Handler: svc.GetUsageMetrics},
		{Name: "get_performance_metrics", Description: "Report active operation count and per-type latency percentiles.", InputSchema: rawSchema(emptyObjectSchema), Handler: svc.GetPerformanceMetrics},
		{Name: "get_cost_report", Description: "Report cost breakdown by agent, operation, provider, and day.", InputSchema: rawSchema(emptyObjectSchema), Handler: svc.GetCostReport},
		{Name: "get_monitoring_status", Description: "Report whether metrics collection is enabled and running.", InputSchema: rawSchema(emptyObjectSchema), Handler: svc.GetMonitoringStatus},
	})
}

func registerExtractionTools(tools *mcp.ToolRegistry, ds dataset.Dataset, embedder enhance.Embedder) error {
	svc := enhance.NewExtractionService(ds, embedder)
	return tools.RegisterAll([]mcp.Tool{
		{Name: "extract_from_file", Description: "Extract a document candidate from a single file, format-aware.", InputSchema: rawSchema(extractFromFileSchema), Handler: svc.ExtractFromFile},
		{Name: "batch_extract", Description: "Walk a directory and extract one document candidate per matched file.", InputSchema: rawSchema(batchExtractSchema), Handler: svc.BatchExtract},
	})
}

func registerEnhanceTools(tools *mcp.ToolRegistry, ds dataset.Dataset, caller enhance.Caller) error {
	svc := enhance.NewService(ds, caller)
	return tools.RegisterAll([]mcp.Tool{
		{Name: "enhance_context", Description: "Regenerate a document's context note from its content.", InputSchema: rawSchema(documentIDSchema), Handler: svc.EnhanceContext},
		{Name: "extract_metadata", Description: "Extract structured custom metadata and lifecycle status.", InputSchema: rawSchema(documentIDSchema), Handler: svc.ExtractMetadata},
		{Name: "generate_tags", Description: "Suggest and merge topical tags.", InputSchema: rawSchema(documentIDSchema), Handler: svc.GenerateTags},
		{Name: "improve_title", Description: "Suggest a clearer, more specific title.", InputSchema: rawSchema(documentIDSchema), Handler: svc.ImproveTitle},
		{Name: "enhance_for_purpose", Description: "Regenerate the context note tailored to a stated purpose.", InputSchema: rawSchema(enhanceForPurposeSchema), Handler: svc.EnhanceForPurpose},
		{Name: "batch_enhance", Description: "Apply one enhancement operation across multiple documents.", InputSchema: rawSchema(batchEnhanceSchema), Handler: svc.BatchEnhance},
	})
}

func registerResources(resources *mcp.ResourceRegistry, ds dataset.Dataset, stats *analytics.StatsCollector) error {
	svc := NewResourceService(ds, stats)
	if err := resources.Register(mcp.Resource{
		URI: "contextframe://dataset/info", Name: "Dataset info",
		Description: "Current dataset statistics.", MimeType: "application/json",
		Handler: svc.DatasetInfo,
	}); err != nil {
		return err
	}
	return resources.Register(mcp.Resource{
		URI: "contextframe://dataset/schema", Name: "Dataset schema",
		Description: "Record, relationship, and metadata status enumerations.", MimeType: "application/json",
		Handler: svc.DatasetSchema,
	})
}
