package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
)

// OptimizeOperation identifies one storage optimization operation.
type OptimizeOperation string

const (
	OpCompact OptimizeOperation = "compact"
	OpVacuum  OptimizeOperation = "vacuum"
	OpReindex OptimizeOperation = "reindex"
)

// OptimizeResult is the outcome of a single optimization run.
type OptimizeResult struct {
	Operation       OptimizeOperation      `json:"operation"`
	Success         bool                   `json:"success"`
	Metrics         map[string]interface{} `json:"metrics"`
	DurationSeconds float64                `json:"duration_seconds"`
	Timestamp       time.Time              `json:"timestamp"`
}

const defaultVacuumRetention = 7 * 24 * time.Hour

// StorageOptimizer drives compact/vacuum/reindex operations against the
// dataset and appends every run to its history.
type StorageOptimizer struct {
	ds      dataset.Dataset
	history []OptimizeResult
}

// NewStorageOptimizer wires a StorageOptimizer around ds.
func NewStorageOptimizer(ds dataset.Dataset) *StorageOptimizer {
	return &StorageOptimizer{ds: ds}
}

// Run executes op against the dataset, or simulates it when dryRun is set.
func (o *StorageOptimizer) Run(ctx context.Context, op OptimizeOperation, dryRun bool) (OptimizeResult, error) {
	start := time.Now()
	result := OptimizeResult{Operation: op, Timestamp: start, Metrics: map[string]interface{}{}}

	var err error
	switch op {
	case OpCompact:
		err = o.compact(ctx, dryRun, &result)
	case OpVacuum:
		err = o.vacuum(ctx, dryRun, &result)
	case OpReindex:
		err = o.reindex(ctx, dryRun, &result)
	default:
		err = fmt.Errorf("unknown optimize operation %q", op)
	}

	result.Success = err == nil
	result.DurationSeconds = time.Since(start).Seconds()
	o.history = append(o.history, result)
	return result, err
}

func (o *StorageOptimizer) compact(ctx context.Context, dryRun bool, result *OptimizeResult) error {
	if dryRun {
		frags, err := o.ds.GetFragmentStats(ctx)
		if err != nil {
			return err
		}
		var candidates []int
		for _, f := range frags {
			if f.NumRows < 10000 {
				candidates = append(candidates, f.ID)
			}
		}
		result.Metrics["candidate_fragments"] = candidates
		return nil
	}
	cr, err := o.ds.CompactFiles(ctx)
	if err != nil {
		return err
	}
	result.Metrics["fragments_before"] = cr.FragmentsBefore
	result.Metrics["fragments_after"] = cr.FragmentsAfter
	result.Metrics["bytes_reclaimed"] = cr.BytesReclaimed
	return nil
}

func (o *StorageOptimizer) vacuum(ctx context.Context, dryRun bool, result *OptimizeResult) error {
	versions, err := o.ds.GetVersionHistory(ctx, 0)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-defaultVacuumRetention)
	stale := 0
	for _, v := range versions {
		ts, err := time.Parse(time.RFC3339Nano, v.Timestamp)
		if err == nil && ts.Before(cutoff) {
			stale++
		}
	}
	result.Metrics["versions_eligible"] = stale
	if dryRun {
		return nil
	}
	removed, err := o.ds.CleanupOldVersions(ctx, len(versions)-stale)
	if err != nil {
		return err
	}
	result.Metrics["versions_removed"] = removed
	return nil
}

func (o *StorageOptimizer) reindex(ctx context.Context, dryRun bool, result *OptimizeResult) error {
	indices, err := o.ds.ListIndices(ctx)
	if err != nil {
		return err
	}
	result.Metrics["indices_optimized"] = len(indices)
	if dryRun {
		return nil
	}
	return o.ds.OptimizeIndices(ctx)
}

// History returns every optimize run recorded so far, oldest first.
func (o *StorageOptimizer) History() []OptimizeResult {
	out := make([]OptimizeResult, len(o.history))
	copy(out, o.history)
	return out
}
