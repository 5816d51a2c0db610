package dataset

import "context"

// Pooled wraps a Dataset so every blocking call runs through a Pool instead
// of directly on the calling goroutine, which is the MCP dispatch goroutine
// for synchronous tool calls. Scanner is the one exception: it already
// returns immediately with channels the caller drains at its own pace, so
// there is no synchronous blocking call to bound.
type Pooled struct {
	inner Dataset
	pool  *Pool
}

// NewPooled returns a Dataset that admits at most pool's worker count of
// concurrent blocking calls into inner at a time.
func NewPooled(inner Dataset, pool *Pool) *Pooled {
	return &Pooled{inner: inner, pool: pool}
}

func (p *Pooled) Scanner(ctx context.Context, opts ScanOptions) (<-chan RowBatch, <-chan error) {
	return p.inner.Scanner(ctx, opts)
}

func (p *Pooled) CountRows(ctx context.Context, filter string) (int64, error) {
	var n int64
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		n, innerErr = p.inner.CountRows(ctx, filter)
		return innerErr
	})
	return n, err
}

func (p *Pooled) CountByFilter(ctx context.Context, expr string) (int64, error) {
	var n int64
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		n, innerErr = p.inner.CountByFilter(ctx, expr)
		return innerErr
	})
	return n, err
}

func (p *Pooled) GetByUUID(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		rec, innerErr = p.inner.GetByUUID(ctx, id)
		return innerErr
	})
	return rec, err
}

func (p *Pooled) GetCollectionMembers(ctx context.Context, collection string) ([]Record, error) {
	var recs []Record
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		recs, innerErr = p.inner.GetCollectionMembers(ctx, collection)
		return innerErr
	})
	return recs, err
}

func (p *Pooled) FindRelatedTo(ctx context.Context, id string) ([]Record, error) {
	var recs []Record
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		recs, innerErr = p.inner.FindRelatedTo(ctx, id)
		return innerErr
	})
	return recs, err
}

func (p *Pooled) Add(ctx context.Context, r Record) (string, error) {
	var id string
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		id, innerErr = p.inner.Add(ctx, r)
		return innerErr
	})
	return id, err
}

// AddMany fans each record out to its own pool slot via SubmitAll instead of
// holding a single slot for the whole batch, so a large batch doesn't starve
// every other concurrent dataset call until it finishes.
func (p *Pooled) AddMany(ctx context.Context, rs []Record) ([]string, error) {
	ids := make([]string, len(rs))
	err := p.pool.SubmitAll(ctx, len(rs), func(i int) error {
		id, innerErr := p.inner.Add(ctx, rs[i])
		if innerErr != nil {
			return innerErr
		}
		ids[i] = id
		return nil
	})
	return ids, err
}

func (p *Pooled) UpdateRecord(ctx context.Context, r Record) error {
	return p.pool.Submit(ctx, func() error {
		return p.inner.UpdateRecord(ctx, r)
	})
}

func (p *Pooled) DeleteRecord(ctx context.Context, id string) error {
	return p.pool.Submit(ctx, func() error {
		return p.inner.DeleteRecord(ctx, id)
	})
}

func (p *Pooled) UpsertRecord(ctx context.Context, r Record) (string, error) {
	var id string
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		id, innerErr = p.inner.UpsertRecord(ctx, r)
		return innerErr
	})
	return id, err
}

func (p *Pooled) KNNSearch(ctx context.Context, vector []float32, k int, filter string) ([]KNNResult, error) {
	var results []KNNResult
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		results, innerErr = p.inner.KNNSearch(ctx, vector, k, filter)
		return innerErr
	})
	return results, err
}

func (p *Pooled) FullTextSearch(ctx context.Context, query string, k int, filter string) ([]FTSResult, error) {
	var results []FTSResult
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		results, innerErr = p.inner.FullTextSearch(ctx, query, k, filter)
		return innerErr
	})
	return results, err
}

func (p *Pooled) GetDatasetStats(ctx context.Context) (DatasetStats, error) {
	var stats DatasetStats
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		stats, innerErr = p.inner.GetDatasetStats(ctx)
		return innerErr
	})
	return stats, err
}

func (p *Pooled) GetFragmentStats(ctx context.Context) ([]FragmentStats, error) {
	var stats []FragmentStats
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		stats, innerErr = p.inner.GetFragmentStats(ctx)
		return innerErr
	})
	return stats, err
}

func (p *Pooled) ListIndices(ctx context.Context) ([]IndexInfo, error) {
	var indices []IndexInfo
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		indices, innerErr = p.inner.ListIndices(ctx)
		return innerErr
	})
	return indices, err
}

func (p *Pooled) GetVersionHistory(ctx context.Context, limit int) ([]VersionInfo, error) {
	var versions []VersionInfo
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		versions, innerErr = p.inner.GetVersionHistory(ctx, limit)
		return innerErr
	})
	return versions, err
}

func (p *Pooled) CompactFiles(ctx context.Context) (CompactionResult, error) {
	var result CompactionResult
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		result, innerErr = p.inner.CompactFiles(ctx)
		return innerErr
	})
	return result, err
}

func (p *Pooled) CleanupOldVersions(ctx context.Context, olderThanVersions int) (int, error) {
	var n int
	err := p.pool.Submit(ctx, func() error {
		var innerErr error
		n, innerErr = p.inner.CleanupOldVersions(ctx, olderThanVersions)
		return innerErr
	})
	return n, err
}

func (p *Pooled) OptimizeIndices(ctx context.Context) error {
	return p.pool.Submit(ctx, func() error {
		return p.inner.OptimizeIndices(ctx)
	})
}

func (p *Pooled) CreateScalarIndex(ctx context.Context, column string) error {
	return p.pool.Submit(ctx, func() error {
		return p.inner.CreateScalarIndex(ctx, column)
	})
}

func (p *Pooled) CreateFTSIndex(ctx context.Context, column string) error {
	return p.pool.Submit(ctx, func() error {
		return p.inner.CreateFTSIndex(ctx, column)
	})
}

func (p *Pooled) CreateVectorIndex(ctx context.Context, column string, dimension int) error {
	return p.pool.Submit(ctx, func() error {
		return p.inner.CreateVectorIndex(ctx, column, dimension)
	})
}
