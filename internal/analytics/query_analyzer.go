package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/ring"
)

// QueryType classifies a recorded query execution.
type QueryType string

const (
	QueryVector QueryType = "vector"
	QueryText   QueryType = "text"
	QueryHybrid QueryType = "hybrid"
	QueryFilter QueryType = "filter"
)

// QueryExecution is one recorded query, the unit QueryAnalyzer keeps a ring
// of recent executions of.
type QueryExecution struct {
	Type         QueryType
	Text         string
	FilterExpr   string
	DurationMS   float64
	RowsScanned  int64
	RowsReturned int64
	IndexUsed    bool
	Timestamp    time.Time
}

const queryRingCapacity = 1000

// QueryAnalyzer keeps a bounded ring of recent query executions and
// computes latency/throughput statistics and slow-query hints on demand.
type QueryAnalyzer struct {
	executions *ring.Buffer[QueryExecution]
}

// NewQueryAnalyzer returns a QueryAnalyzer retaining the most recent 1000
// executions.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{executions: ring.New[QueryExecution](queryRingCapacity)}
}

// Record appends a query execution to the ring.
func (a *QueryAnalyzer) Record(e QueryExecution) {
	a.executions.Push(e)
}

// PercentileStats reports p50/p90/p99 and the mean of a metric.
type PercentileStats struct {
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
	Mean float64 `json:"mean"`
}

// SlowQuery is one entry in the top-10 slowest recent queries, with an
// optimization hint attached.
type SlowQuery struct {
	Execution QueryExecution `json:"execution"`
	Hint      string         `json:"hint"`
}

// QueryReport is the full analysis returned by analyze_query_performance.
type QueryReport struct {
	Total            int                        `json:"total"`
	Duration         PercentileStats            `json:"duration_ms"`
	AvgRowsScanned   float64                    `json:"avg_rows_scanned"`
	PerType          map[QueryType]PercentileStats `json:"per_type"`
	SlowQueries      []SlowQuery                `json:"slow_queries"`
	FilterFieldFreq  map[string]int             `json:"filter_field_frequency"`
}

// Analyze computes a QueryReport from the currently retained executions.
func (a *QueryAnalyzer) Analyze() QueryReport {
	execs := a.executions.Snapshot()
	report := QueryReport{
		Total:           len(execs),
		PerType:         map[QueryType]PercentileStats{},
		FilterFieldFreq: map[string]int{},
	}
	if len(execs) == 0 {
		return report
	}

	durations := make([]float64, len(execs))
	var rowsScannedSum int64
	byType := map[QueryType][]float64{}

	for i, e := range execs {
		durations[i] = e.DurationMS
		rowsScannedSum += e.RowsScanned
		byType[e.Type] = append(byType[e.Type], e.DurationMS)
		for _, field := range extractFilterFields(e.FilterExpr) {
			report.FilterFieldFreq[field]++
		}
	}

	report.Duration = percentiles(durations)
	report.AvgRowsScanned = float64(rowsScannedSum) / float64(len(execs))
	for t, ds := range byType {
		report.PerType[t] = percentiles(ds)
	}

	sorted := append([]QueryExecution(nil), execs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DurationMS > sorted[j].DurationMS })
	n := 10
	if len(sorted) < n {
		n = len(sorted)
	}
	for _, e := range sorted[:n] {
		report.SlowQueries = append(report.SlowQueries, SlowQuery{Execution: e, Hint: slowQueryHint(e)})
	}

	return report
}

func slowQueryHint(e QueryExecution) string {
	if (e.Type == QueryVector || e.Type == QueryText) && !e.IndexUsed {
		return "no index used for this query type"
	}
	if e.RowsScanned > 0 && float64(e.RowsReturned)/float64(e.RowsScanned) < 0.01 {
		return "low selectivity: consider a more targeted filter or index"
	}
	if e.DurationMS > 1000 {
		return "duration exceeds 1s threshold"
	}
	if strings.Contains(strings.ToUpper(e.FilterExpr), " OR ") {
		return "OR in filter expression prevents index usage"
	}
	return ""
}

func extractFilterFields(expr string) []string {
	if expr == "" {
		return nil
	}
	var fields []string
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		for _, op := range []string{">=", "<=", "!=", "=", ">", "<"} {
			if idx := strings.Index(clause, op); idx > 0 {
				fields = append(fields, strings.TrimSpace(clause[:idx]))
				break
			}
		}
	}
	return fields
}

func percentiles(values []float64) PercentileStats {
	if len(values) == 0 {
		return PercentileStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return PercentileStats{
		P50:  percentileOf(sorted, 0.50),
		P90:  percentileOf(sorted, 0.90),
		P99:  percentileOf(sorted, 0.99),
		Mean: sum / float64(len(sorted)),
	}
}

func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
