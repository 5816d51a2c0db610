// Package analytics implements the stats collector, query/usage/relationship
// analyzers, and the optimizer/advisor/benchmark subsystem that sit on top
// of internal/dataset.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
)

// StatsOptions narrows a GetDatasetStats call.
type StatsOptions struct {
	IncludeContent       bool
	IncludeFragments     bool
	IncludeRelationships bool
	SampleSize           int
}

// StorageStats summarizes physical layout.
type StorageStats struct {
	NumFragments       int     `json:"num_fragments"`
	DeletedRows        int64   `json:"deleted_rows"`
	SmallFiles         int     `json:"small_files"`
	EstimatedBytes     int64   `json:"estimated_bytes"`
	FragmentEfficiency float64 `json:"fragment_efficiency"`
}

// VersionStats summarizes the version history.
type VersionStats struct {
	Current int64 `json:"current"`
	Latest  int64 `json:"latest"`
	Count   int   `json:"count"`
}

// ContentStats summarizes record content.
type ContentStats struct {
	DocumentTypes   map[string]int64 `json:"document_types"`
	CollectionSizes map[string]int64 `json:"collection_sizes"`
	MetadataFields  map[string]int64 `json:"metadata_field_frequency"`
}

// EmbeddingStats summarizes vector coverage.
type EmbeddingStats struct {
	Coverage            float64 `json:"coverage"`
	ObservedDimensions  []int   `json:"observed_dimensions"`
}

// RelationshipStats summarizes the relationship graph at a glance (full
// graph analysis lives in RelationshipAnalyzer).
type RelationshipStats struct {
	TypeHistogram map[string]int64 `json:"type_histogram"`
	AvgPerDoc     float64          `json:"avg_per_doc"`
	OrphanCount   int64            `json:"orphan_count"`
}

// TemporalStats reports the oldest/newest record by created_at.
type TemporalStats struct {
	Oldest time.Time `json:"oldest"`
	Newest time.Time `json:"newest"`
}

// DerivedStats are computed from the other sections.
type DerivedStats struct {
	AvgDocSizeKB        float64 `json:"avg_doc_size_kb"`
	CollectionSizeMin   int64   `json:"collection_size_min"`
	CollectionSizeMean  float64 `json:"collection_size_mean"`
	CollectionSizeMax   int64   `json:"collection_size_max"`
}

// DatasetStatsReport is the full snapshot returned by get_dataset_stats.
type DatasetStatsReport struct {
	TotalDocuments    int64             `json:"total_documents"`
	TotalCollections  int64             `json:"total_collections"`
	TotalRelationships int64            `json:"total_relationships"`
	Storage           StorageStats      `json:"storage"`
	Version           VersionStats      `json:"version"`
	Content           ContentStats      `json:"content"`
	Embeddings        EmbeddingStats    `json:"embeddings"`
	Relationships     RelationshipStats `json:"relationships"`
	Indices           []dataset.IndexInfo `json:"indices"`
	Temporal          TemporalStats     `json:"temporal"`
	Derived           DerivedStats      `json:"derived"`
	Sampled           bool              `json:"sampled"`
}

// StatsCollector computes DatasetStatsReport snapshots on demand, the C6
// component. It never materializes full rows when a counter suffices:
// column projection is driven by the StatsOptions inclusion flags.
type StatsCollector struct {
	ds dataset.Dataset
}

// NewStatsCollector wires a StatsCollector around ds.
func NewStatsCollector(ds dataset.Dataset) *StatsCollector {
	return &StatsCollector{ds: ds}
}

// Collect computes a DatasetStatsReport honoring opts.
func (c *StatsCollector) Collect(ctx context.Context, opts StatsOptions) (DatasetStatsReport, error) {
	columns := []string{}
	if opts.IncludeContent {
		columns = append(columns, "content")
	}
	if opts.IncludeRelationships {
		columns = append(columns, "metadata")
	}
	columns = append(columns, "title", "metadata")

	scanOpts := dataset.ScanOptions{Columns: columns, Limit: opts.SampleSize}
	out, errc := c.ds.Scanner(ctx, scanOpts)

	report := DatasetStatsReport{
		Content: ContentStats{
			DocumentTypes:   map[string]int64{},
			CollectionSizes: map[string]int64{},
			MetadataFields:  map[string]int64{},
		},
		Relationships: RelationshipStats{TypeHistogram: map[string]int64{}},
	}

	var (
		sampled           int64
		vectorRows        int64
		relCount          int64
		totalBytes        int64
		dims              = map[int]bool{}
		reachable         = map[string]bool{}
		minCollSize       int64 = -1
		maxCollSize       int64
	)

	for batch := range out {
		for _, r := range batch.Records {
			sampled++
			report.Content.DocumentTypes[string(r.Type)]++
			totalBytes += int64(len(r.Content))
			if r.Vector != nil {
				vectorRows++
				dims[len(r.Vector)] = true
			}
			if r.Metadata.Collection != "" {
				report.Content.CollectionSizes[r.Metadata.Collection]++
			}
			for k := range r.Metadata.Custom {
				report.Content.MetadataFields[k]++
			}
			for _, rel := range r.Metadata.Relationships {
				relCount++
				report.Relationships.TypeHistogram[string(rel.Type)]++
				reachable[r.UUID] = true
				if rel.TargetUUID != "" {
					reachable[rel.TargetUUID] = true
				}
			}
			if r.Metadata.CreatedAt.After(report.Temporal.Newest) {
				report.Temporal.Newest = r.Metadata.CreatedAt
			}
			if report.Temporal.Oldest.IsZero() || (!r.Metadata.CreatedAt.IsZero() && r.Metadata.CreatedAt.Before(report.Temporal.Oldest)) {
				report.Temporal.Oldest = r.Metadata.CreatedAt
			}
		}
	}
	if err := <-errc; err != nil {
		return DatasetStatsReport{}, fmt.Errorf("stats collection scan failed: %w", err)
	}

	total, err := c.ds.CountRows(ctx, "")
	if err != nil {
		return DatasetStatsReport{}, err
	}

	scale := 1.0
	report.Sampled = opts.SampleSize > 0 && sampled < total
	if report.Sampled && sampled > 0 {
		scale = float64(total) / float64(sampled)
	}

	report.TotalDocuments = total
	report.TotalCollections = int64(len(report.Content.CollectionSizes))
	report.TotalRelationships = int64(float64(relCount) * scale)

	if sampled > 0 {
		report.Embeddings.Coverage = float64(vectorRows) / float64(sampled)
	}
	for d := range dims {
		report.Embeddings.ObservedDimensions = append(report.Embeddings.ObservedDimensions, d)
	}

	dsStats, err := c.ds.GetDatasetStats(ctx)
	if err != nil {
		return DatasetStatsReport{}, err
	}
	report.Storage = StorageStats{
		NumFragments:   dsStats.NumFragments,
		EstimatedBytes: dsStats.TotalBytes,
	}
	if dsStats.TotalBytes > 0 {
		report.Storage.FragmentEfficiency = 1.0 // memref never tracks deleted rows separately
	}

	versions, err := c.ds.GetVersionHistory(ctx, 0)
	if err != nil {
		return DatasetStatsReport{}, err
	}
	report.Version = VersionStats{Count: len(versions)}
	if len(versions) > 0 {
		report.Version.Current = versions[len(versions)-1].Version
		report.Version.Latest = versions[len(versions)-1].Version
	}

	if opts.IncludeFragments {
		frags, err := c.ds.GetFragmentStats(ctx)
		if err != nil {
			return DatasetStatsReport{}, err
		}
		report.Storage.NumFragments = len(frags)
		for _, f := range frags {
			if f.NumRows < 1000 {
				report.Storage.SmallFiles++
			}
		}
	}

	indices, err := c.ds.ListIndices(ctx)
	if err != nil {
		return DatasetStatsReport{}, err
	}
	report.Indices = indices

	if sampled > 0 {
		report.Relationships.AvgPerDoc = float64(relCount) / float64(sampled)
		report.Derived.AvgDocSizeKB = float64(totalBytes) / float64(sampled) / 1024.0
	}
	report.Relationships.OrphanCount = total - int64(len(reachable))
	if report.Relationships.OrphanCount < 0 {
		report.Relationships.OrphanCount = 0
	}

	for _, n := range report.Content.CollectionSizes {
		if minCollSize == -1 || n < minCollSize {
			minCollSize = n
		}
		if n > maxCollSize {
			maxCollSize = n
		}
	}
	if minCollSize == -1 {
		minCollSize = 0
	}
	report.Derived.CollectionSizeMin = minCollSize
	report.Derived.CollectionSizeMax = maxCollSize
	if len(report.Content.CollectionSizes) > 0 {
		var sum int64
		for _, n := range report.Content.CollectionSizes {
			sum += n
		}
		report.Derived.CollectionSizeMean = float64(sum) / float64(len(report.Content.CollectionSizes))
	}

	return report, nil
}
