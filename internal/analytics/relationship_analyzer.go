package analytics

import (
	"context"
	"sort"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
)

// DegreeStats summarizes a degree distribution.
type DegreeStats struct {
	Avg float64 `json:"avg"`
	Max int     `json:"max"`
}

// ComponentInfo is one weakly-connected component.
type ComponentInfo struct {
	Size  int      `json:"size"`
	Nodes []string `json:"nodes"`
}

// CyclePath is one detected cycle, as a sequence of record UUIDs.
type CyclePath struct {
	Nodes []string `json:"nodes"`
}

// RelationshipReport is the result of relationship_analysis.
type RelationshipReport struct {
	NodeCount       int                `json:"node_count"`
	EdgeCount       int                `json:"edge_count"`
	InDegree        DegreeStats        `json:"in_degree"`
	OutDegree       DegreeStats        `json:"out_degree"`
	Components      []ComponentInfo    `json:"components"`
	TypeCounts      map[string]int     `json:"type_counts"`
	CoOccurrence    map[string]int     `json:"co_occurrence"`
	Cycles          []CyclePath        `json:"cycles"`
	Orphans         []string           `json:"orphans"`
}

const (
	maxCycles  = 10
	maxOrphans = 100
	maxCycleDepth = 20
)

// RelationshipAnalyzer builds a directed graph on demand by scanning every
// record's relationships and computes connectivity/cycle/orphan metrics.
type RelationshipAnalyzer struct {
	ds dataset.Dataset
}

// NewRelationshipAnalyzer wires a RelationshipAnalyzer against ds.
func NewRelationshipAnalyzer(ds dataset.Dataset) *RelationshipAnalyzer {
	return &RelationshipAnalyzer{ds: ds}
}

// Analyze scans the dataset and computes a RelationshipReport.
func (a *RelationshipAnalyzer) Analyze(ctx context.Context) (RelationshipReport, error) {
	out, errc := a.ds.Scanner(ctx, dataset.ScanOptions{Columns: []string{"metadata"}})

	edges := map[string][]string{} // src -> dsts
	undirected := map[string]map[string]bool{}
	allNodes := map[string]bool{}
	typeCounts := map[string]int{}
	coOccurrence := map[string]int{}

	for batch := range out {
		for _, r := range batch.Records {
			allNodes[r.UUID] = true
			types := map[string]bool{}
			for _, rel := range r.Metadata.Relationships {
				if rel.TargetUUID == "" || rel.TargetUUID == r.UUID {
					continue
				}
				edges[r.UUID] = append(edges[r.UUID], rel.TargetUUID)
				typeCounts[string(rel.Type)]++
				types[string(rel.Type)] = true

				addUndirected(undirected, r.UUID, rel.TargetUUID)
			}
			for t1 := range types {
				for t2 := range types {
					if t1 < t2 {
						coOccurrence[t1+"+"+t2]++
					}
				}
			}
		}
	}
	if err := <-errc; err != nil {
		return RelationshipReport{}, err
	}

	report := RelationshipReport{
		TypeCounts:   typeCounts,
		CoOccurrence: coOccurrence,
	}

	inDegree := map[string]int{}
	outDegree := map[string]int{}
	nodesWithEdges := map[string]bool{}
	for src, dsts := range edges {
		outDegree[src] += len(dsts)
		nodesWithEdges[src] = true
		for _, dst := range dsts {
			inDegree[dst]++
			nodesWithEdges[dst] = true
		}
	}

	report.NodeCount = len(allNodes)
	for _, dsts := range edges {
		report.EdgeCount += len(dsts)
	}
	report.InDegree = degreeStats(inDegree)
	report.OutDegree = degreeStats(outDegree)

	report.Components = weaklyConnectedComponents(undirected, allNodes)
	report.Cycles = detectCycles(edges)

	for node := range allNodes {
		if !nodesWithEdges[node] {
			report.Orphans = append(report.Orphans, node)
			if len(report.Orphans) >= maxOrphans {
				break
			}
		}
	}
	sort.Strings(report.Orphans)

	return report, nil
}

func addUndirected(g map[string]map[string]bool, a, b string) {
	if g[a] == nil {
		g[a] = map[string]bool{}
	}
	if g[b] == nil {
		g[b] = map[string]bool{}
	}
	g[a][b] = true
	g[b][a] = true
}

func degreeStats(degrees map[string]int) DegreeStats {
	if len(degrees) == 0 {
		return DegreeStats{}
	}
	var sum, max int
	for _, d := range degrees {
		sum += d
		if d > max {
			max = d
		}
	}
	return DegreeStats{Avg: float64(sum) / float64(len(degrees)), Max: max}
}

func weaklyConnectedComponents(undirected map[string]map[string]bool, allNodes map[string]bool) []ComponentInfo {
	visited := map[string]bool{}
	var components []ComponentInfo

	for node := range allNodes {
		if visited[node] {
			continue
		}
		var stack, comp []string
		stack = append(stack, node)
		visited[node] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, n)
			for neighbor := range undirected[n] {
				if !visited[neighbor] {
					visited[neighbor] = true
					stack = append(stack, neighbor)
				}
			}
		}
		sort.Strings(comp)
		components = append(components, ComponentInfo{Size: len(comp), Nodes: comp})
	}

	sort.Slice(components, func(i, j int) bool { return components[i].Size > components[j].Size })
	return components
}

func detectCycles(edges map[string][]string) []CyclePath {
	var cycles []CyclePath
	visited := map[string]bool{}

	var dfs func(start, node string, path []string, onStack map[string]bool, depth int)
	dfs = func(start, node string, path []string, onStack map[string]bool, depth int) {
		if len(cycles) >= maxCycles || depth > maxCycleDepth {
			return
		}
		for _, next := range edges[node] {
			if len(cycles) >= maxCycles {
				return
			}
			if next == start && len(path) > 1 {
				cycle := append(append([]string(nil), path...), next)
				cycles = append(cycles, CyclePath{Nodes: cycle})
				continue
			}
			if onStack[next] {
				continue
			}
			onStack[next] = true
			dfs(start, next, append(path, next), onStack, depth+1)
			delete(onStack, next)
		}
	}

	var starts []string
	for n := range edges {
		starts = append(starts, n)
	}
	sort.Strings(starts)

	for _, start := range starts {
		if visited[start] || len(cycles) >= maxCycles {
			continue
		}
		onStack := map[string]bool{start: true}
		dfs(start, start, []string{start}, onStack, 0)
		visited[start] = true
	}
	return cycles
}
