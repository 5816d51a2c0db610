package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/internal/dataset/memref"
)

func seedStore(t *testing.T, n int) *memref.Store {
	t.Helper()
	s := memref.New()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		r := dataset.Record{UUID: dataset.NewUUID(), Title: "doc", Content: "hello world", Type: dataset.RecordTypeDocument}
		_, err := s.Add(ctx, r)
		require.NoError(t, err)
	}
	return s
}

func TestStatsCollector_Collect(t *testing.T) {
	s := seedStore(t, 5)
	c := NewStatsCollector(s)

	report, err := c.Collect(context.Background(), StatsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.TotalDocuments)
	assert.Equal(t, int64(5), report.Content.DocumentTypes[string(dataset.RecordTypeDocument)])
}

func TestQueryAnalyzer_Analyze(t *testing.T) {
	a := NewQueryAnalyzer()
	a.Record(QueryExecution{Type: QueryVector, DurationMS: 5, RowsScanned: 100, RowsReturned: 10, IndexUsed: true})
	a.Record(QueryExecution{Type: QueryVector, DurationMS: 1500, RowsScanned: 10000, RowsReturned: 1, IndexUsed: false})

	report := a.Analyze()
	assert.Equal(t, 2, report.Total)
	require.Len(t, report.SlowQueries, 2)
	assert.Equal(t, "no index used for this query type", report.SlowQueries[0].Hint)
}

func TestUsageAnalyzer_Analyze(t *testing.T) {
	s := seedStore(t, 1)
	var id string
	ctx := context.Background()
	out, errc := s.Scanner(ctx, dataset.ScanOptions{Limit: 1})
	for batch := range out {
		for _, r := range batch.Records {
			id = r.UUID
		}
	}
	require.NoError(t, <-errc)

	a := NewUsageAnalyzer(s)
	for i := 0; i < 15; i++ {
		a.Record(id, time.Now())
	}

	report := a.Analyze(ctx)
	require.Len(t, report.HotDocuments, 1)
	assert.Equal(t, 15, report.HotDocuments[0].Count)
	assert.Contains(t, report.Recommendations, "consider caching frequently accessed documents")
}

func TestRelationshipAnalyzer_Analyze(t *testing.T) {
	s := memref.New()
	ctx := context.Background()
	parent := dataset.Record{UUID: dataset.NewUUID(), Title: "p", Type: dataset.RecordTypeDocument}
	pid, err := s.Add(ctx, parent)
	require.NoError(t, err)

	child := dataset.Record{UUID: dataset.NewUUID(), Title: "c", Type: dataset.RecordTypeDocument}
	child.Metadata.Relationships = []dataset.Relationship{{Type: dataset.RelationshipParent, TargetUUID: pid}}
	_, err = s.Add(ctx, child)
	require.NoError(t, err)

	orphan := dataset.Record{UUID: dataset.NewUUID(), Title: "o", Type: dataset.RecordTypeDocument}
	_, err = s.Add(ctx, orphan)
	require.NoError(t, err)

	analyzer := NewRelationshipAnalyzer(s)
	report, err := analyzer.Analyze(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EdgeCount)
	assert.Equal(t, 1, report.TypeCounts[string(dataset.RelationshipParent)])
	assert.Contains(t, report.Orphans, orphan.UUID)
}

func TestStorageOptimizer_CompactDryRun(t *testing.T) {
	s := seedStore(t, 3)
	o := NewStorageOptimizer(s)

	result, err := o.Run(context.Background(), OpCompact, true)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, o.History(), 1)
}

func TestIndexAdvisor_RecommendsVectorAndFTSForSearch(t *testing.T) {
	s := memref.New()
	advisor := NewIndexAdvisor(s, nil)

	recs, err := advisor.Recommend(context.Background(), false, WorkloadSearch)
	require.NoError(t, err)

	var sawVector, sawFTS bool
	for _, r := range recs {
		if r.Field == "embedding" && r.Kind == dataset.IndexVector {
			sawVector = true
		}
		if r.Field == "content" && r.Kind == dataset.IndexFTS {
			sawFTS = true
		}
	}
	assert.True(t, sawVector)
	assert.True(t, sawFTS)
}

func TestPerformanceBenchmark_ScanAndInsert(t *testing.T) {
	s := seedStore(t, 20)
	b := NewPerformanceBenchmark(s)

	scanResult, err := b.Run(context.Background(), BenchScan, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, scanResult.SampleSize)
	assert.Greater(t, scanResult.ThroughputOpsPerSec, 0.0)

	insertResult, err := b.Run(context.Background(), BenchInsert, 10, 4)
	require.NoError(t, err)
	assert.InDelta(t, insertBaselineMS, insertResult.Mean, 5.0)
}
