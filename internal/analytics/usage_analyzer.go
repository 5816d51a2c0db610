package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
	"github.com/contextframeai/contextframe-mcp/internal/ring"
)

// DocAccess is one recorded document access.
type DocAccess struct {
	DocID     string
	Timestamp time.Time
}

const usageRingCapacity = 10000

// UsageAnalyzer records document accesses and reports hot documents, access
// distribution, temporal buckets, and per-collection access.
type UsageAnalyzer struct {
	accesses *ring.Buffer[DocAccess]
	ds       dataset.Dataset
}

// NewUsageAnalyzer wires a UsageAnalyzer against ds, used to resolve
// document IDs to their collection when reporting per-collection access.
func NewUsageAnalyzer(ds dataset.Dataset) *UsageAnalyzer {
	return &UsageAnalyzer{accesses: ring.New[DocAccess](usageRingCapacity), ds: ds}
}

// Record appends a document access.
func (a *UsageAnalyzer) Record(docID string, ts time.Time) {
	a.accesses.Push(DocAccess{DocID: docID, Timestamp: ts})
}

// HotDocument is one entry in the top-10 most accessed documents.
type HotDocument struct {
	DocID string `json:"doc_id"`
	Count int    `json:"count"`
}

// AccessDistribution summarizes per-document access counts.
type AccessDistribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    int     `json:"max"`
}

// UsageReport is the result of analyze_usage.
type UsageReport struct {
	HotDocuments       []HotDocument      `json:"hot_documents"`
	Distribution       AccessDistribution `json:"access_distribution"`
	HourlyBuckets      map[string]int     `json:"hourly_buckets"`
	DailyBuckets       map[string]int     `json:"daily_buckets"`
	WeeklyBuckets      map[string]int     `json:"weekly_buckets"`
	PerCollection      map[string]int     `json:"per_collection_access"`
	Recommendations    []string           `json:"recommendations"`
}

// Analyze computes a UsageReport from recorded accesses.
func (a *UsageAnalyzer) Analyze(ctx context.Context) UsageReport {
	accesses := a.accesses.Snapshot()
	report := UsageReport{
		HourlyBuckets: map[string]int{},
		DailyBuckets:  map[string]int{},
		WeeklyBuckets: map[string]int{},
		PerCollection: map[string]int{},
	}
	if len(accesses) == 0 {
		return report
	}

	counts := map[string]int{}
	for _, acc := range accesses {
		counts[acc.DocID]++
		report.HourlyBuckets[acc.Timestamp.Format("2006-01-02T15")]++
		report.DailyBuckets[acc.Timestamp.Format("2006-01-02")]++
		y, w := acc.Timestamp.ISOWeek()
		report.WeeklyBuckets[weekKey(y, w)]++

		if a.ds != nil {
			if rec, err := a.ds.GetByUUID(ctx, acc.DocID); err == nil && rec.Metadata.Collection != "" {
				report.PerCollection[rec.Metadata.Collection]++
			}
		}
	}

	type kv struct {
		id string
		n  int
	}
	sorted := make([]kv, 0, len(counts))
	for id, n := range counts {
		sorted = append(sorted, kv{id, n})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].n > sorted[j].n })

	top := 10
	if len(sorted) < top {
		top = len(sorted)
	}
	for _, e := range sorted[:top] {
		report.HotDocuments = append(report.HotDocuments, HotDocument{DocID: e.id, Count: e.n})
	}

	values := make([]float64, 0, len(counts))
	maxCount := 0
	for _, n := range counts {
		values = append(values, float64(n))
		if n > maxCount {
			maxCount = n
		}
	}
	stats := percentiles(values)
	report.Distribution = AccessDistribution{Mean: stats.Mean, Median: stats.P50, P90: stats.P90, Max: maxCount}

	report.Recommendations = usageRecommendations(report)
	return report
}

func weekKey(year, week int) string {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, (week-1)*7).Format("2006-01-02") + "/W"
}

func usageRecommendations(r UsageReport) []string {
	var recs []string
	if len(r.HotDocuments) > 0 && r.HotDocuments[0].Count > 10 {
		recs = append(recs, "consider caching frequently accessed documents")
	}
	if r.Distribution.P90 > r.Distribution.Mean*3 {
		recs = append(recs, "access pattern is highly skewed; optimize the hot path for top documents")
	}
	if len(r.PerCollection) > 0 {
		hottest, hottestCount := "", 0
		for c, n := range r.PerCollection {
			if n > hottestCount {
				hottest, hottestCount = c, n
			}
		}
		if hottest != "" {
			recs = append(recs, "consider an index on collection \""+hottest+"\", the most accessed collection")
		}
	}
	return recs
}
