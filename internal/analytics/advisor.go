package analytics

import (
	"context"
	"sort"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
)

// WorkloadType describes the query mix IndexAdvisor should optimize for.
type WorkloadType string

const (
	WorkloadSearch    WorkloadType = "search"
	WorkloadAnalytics WorkloadType = "analytics"
	WorkloadMixed     WorkloadType = "mixed"
)

// Priority is the urgency of an index recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Recommendation is one index (or redundancy) recommendation.
type Recommendation struct {
	Field      string   `json:"field"`
	Kind       dataset.IndexKind `json:"kind"`
	Priority   Priority `json:"priority"`
	Reason     string   `json:"reason"`
	Redundant  bool     `json:"redundant,omitempty"`
}

// knownHighValueFields maps a field to its always-recommend priority.
var knownHighValueFields = map[string]Priority{
	"uuid":          PriorityHigh,
	"record_type":   PriorityHigh,
	"created_at":    PriorityMedium,
	"updated_at":    PriorityMedium,
	"source_type":   PriorityMedium,
}

// IndexAdvisor recommends scalar/vector/FTS indices based on the current
// schema, existing indices, and (optionally) observed filter-field query
// frequency from QueryAnalyzer.
type IndexAdvisor struct {
	ds    dataset.Dataset
	query *QueryAnalyzer
}

// NewIndexAdvisor wires an IndexAdvisor against ds and an optional
// QueryAnalyzer (nil disables the "queried >10 times" rule).
func NewIndexAdvisor(ds dataset.Dataset, query *QueryAnalyzer) *IndexAdvisor {
	return &IndexAdvisor{ds: ds, query: query}
}

// Recommend computes index recommendations for workload, honoring
// analyzeQueries to pull in observed filter-field frequency.
func (a *IndexAdvisor) Recommend(ctx context.Context, analyzeQueries bool, workload WorkloadType) ([]Recommendation, error) {
	existing, err := a.ds.ListIndices(ctx)
	if err != nil {
		return nil, err
	}
	hasIndex := map[string]bool{}
	for _, idx := range existing {
		hasIndex[idx.Column+":"+string(idx.Kind)] = true
	}

	var recs []Recommendation

	if (workload == WorkloadSearch || workload == WorkloadMixed) && !hasIndex["embedding:"+string(dataset.IndexVector)] {
		recs = append(recs, Recommendation{Field: "embedding", Kind: dataset.IndexVector, Priority: PriorityHigh, Reason: "vector index missing for search workload"})
	}

	for field, priority := range knownHighValueFields {
		if !hasIndex[field+":"+string(dataset.IndexScalar)] {
			recs = append(recs, Recommendation{Field: field, Kind: dataset.IndexScalar, Priority: priority, Reason: "high-value field has no scalar index"})
		}
	}

	if analyzeQueries && a.query != nil {
		for field, count := range a.query.Analyze().FilterFieldFreq {
			if count <= 10 || hasIndex[field+":"+string(dataset.IndexScalar)] {
				continue
			}
			priority := PriorityLow
			if count > 50 {
				priority = PriorityMedium
			}
			recs = append(recs, Recommendation{Field: field, Kind: dataset.IndexScalar, Priority: priority, Reason: "queried frequently without an index"})
		}
	}

	if (workload == WorkloadSearch || workload == WorkloadMixed) && !hasIndex["content:"+string(dataset.IndexFTS)] {
		recs = append(recs, Recommendation{Field: "content", Kind: dataset.IndexFTS, Priority: PriorityHigh, Reason: "full-text index missing for search workload"})
	}

	recs = append(recs, redundantIndices(existing)...)

	sort.SliceStable(recs, func(i, j int) bool { return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority] })
	return recs, nil
}

func redundantIndices(existing []dataset.IndexInfo) []Recommendation {
	seen := map[string]bool{}
	var recs []Recommendation
	for _, idx := range existing {
		key := idx.Column + ":" + string(idx.Kind)
		if seen[key] {
			recs = append(recs, Recommendation{Field: idx.Column, Kind: idx.Kind, Priority: PriorityLow, Reason: "duplicate index over the same field", Redundant: true})
			continue
		}
		seen[key] = true
	}
	return recs
}
