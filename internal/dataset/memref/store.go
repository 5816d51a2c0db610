// Package memref is an in-process reference implementation of
// dataset.Dataset: a sorted map, linear-scan filtering, and brute-force KNN.
// It exists so the MCP surface and analytics/monitoring subsystems have a
// dependency-free dataset to run against in tests and in the default
// single-node deployment; it is grounded on the same "interface first,
// swap the backend" shape the vector store package uses.
package memref

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
)

// Store is an in-memory dataset.Dataset backed by a sorted map, guarded by
// a single RWMutex. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	records   map[string]dataset.Record
	order     []string // maintained sorted by UUID for deterministic scans
	indices   []dataset.IndexInfo
	versions  []dataset.VersionInfo
	version   int64
	fragments []dataset.FragmentStats
}

// New returns an empty Store with a single fragment.
func New() *Store {
	return &Store{
		records:   make(map[string]dataset.Record),
		fragments: []dataset.FragmentStats{{ID: 0}},
	}
}

func (s *Store) insertLocked(id string) {
	i := sort.SearchStrings(s.order, id)
	if i < len(s.order) && s.order[i] == id {
		return
	}
	s.order = append(s.order, "")
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = id
}

func (s *Store) removeLocked(id string) {
	i := sort.SearchStrings(s.order, id)
	if i < len(s.order) && s.order[i] == id {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

func (s *Store) recordVersionLocked(op string) {
	s.version++
	s.versions = append(s.versions, dataset.VersionInfo{
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Operation: op,
	})
}

// Scanner streams the matching records in batches of opts.BatchSize (all of
// them in a single batch when BatchSize <= 0). Matching and projection run
// up front under the read lock, since the reference store holds everything
// resident anyway.
func (s *Store) Scanner(ctx context.Context, opts dataset.ScanOptions) (<-chan dataset.RowBatch, <-chan error) {
	out := make(chan dataset.RowBatch, 1)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		filter, err := dataset.ParseFilter(opts.Filter)
		if err != nil {
			errc <- err
			return
		}

		s.mu.RLock()
		matched := make([]dataset.Record, 0, len(s.order))
		for _, id := range s.order {
			r := s.records[id]
			if filter.Match(r) {
				matched = append(matched, projectColumns(r, opts.Columns))
			}
			if opts.Limit > 0 && len(matched) >= opts.Limit {
				break
			}
		}
		s.mu.RUnlock()

		batchSize := opts.BatchSize
		if batchSize <= 0 {
			batchSize = len(matched)
			if batchSize == 0 {
				batchSize = 1
			}
		}
		for i := 0; i < len(matched); i += batchSize {
			end := i + batchSize
			if end > len(matched) {
				end = len(matched)
			}
			select {
			case out <- dataset.RowBatch{Records: matched[i:end], Done: end == len(matched)}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if len(matched) == 0 {
			out <- dataset.RowBatch{Records: nil, Done: true}
		}
	}()

	return out, errc
}

func projectColumns(r dataset.Record, columns []string) dataset.Record {
	if len(columns) == 0 {
		return r
	}
	out := dataset.Record{UUID: r.UUID, Type: r.Type, Version: r.Version}
	for _, c := range columns {
		switch c {
		case "title":
			out.Title = r.Title
		case "content":
			out.Content = r.Content
		case "vector":
			out.Vector = r.Vector
		case "metadata":
			out.Metadata = r.Metadata
		}
	}
	return out
}

func (s *Store) CountRows(ctx context.Context, filter string) (int64, error) {
	return s.CountByFilter(ctx, filter)
}

func (s *Store) CountByFilter(ctx context.Context, expr string) (int64, error) {
	f, err := dataset.ParseFilter(expr)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.records {
		if f.Match(r) {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetByUUID(ctx context.Context, id string) (dataset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return dataset.Record{}, fmt.Errorf("%w: uuid %s", dataset.ErrNotFound, id)
	}
	return r, nil
}

func (s *Store) GetCollectionMembers(ctx context.Context, collection string) ([]dataset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []dataset.Record
	for _, id := range s.order {
		r := s.records[id]
		if r.Metadata.Collection == collection || r.Metadata.CollectionID == collection {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) FindRelatedTo(ctx context.Context, id string) ([]dataset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.records[id]; !ok {
		return nil, fmt.Errorf("%w: uuid %s", dataset.ErrNotFound, id)
	}
	var out []dataset.Record
	for _, r := range s.records {
		for _, rel := range r.Metadata.Relationships {
			if rel.TargetUUID == id {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) Add(ctx context.Context, r dataset.Record) (string, error) {
	if r.UUID == "" {
		r.UUID = dataset.NewUUID()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.UUID]; exists {
		return "", fmt.Errorf("%w: uuid %s already exists", dataset.ErrConflict, r.UUID)
	}
	r.Version = 1
	s.records[r.UUID] = r
	s.insertLocked(r.UUID)
	s.recordVersionLocked("add")
	return r.UUID, nil
}

func (s *Store) AddMany(ctx context.Context, rs []dataset.Record) ([]string, error) {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		id, err := s.Add(ctx, r)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) UpdateRecord(ctx context.Context, r dataset.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[r.UUID]
	if !ok {
		return fmt.Errorf("%w: uuid %s", dataset.ErrNotFound, r.UUID)
	}
	r.Version = existing.Version + 1
	s.records[r.UUID] = r
	s.recordVersionLocked("update")
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: uuid %s", dataset.ErrNotFound, id)
	}
	delete(s.records, id)
	s.removeLocked(id)
	s.recordVersionLocked("delete")
	return nil
}

func (s *Store) UpsertRecord(ctx context.Context, r dataset.Record) (string, error) {
	if r.UUID == "" {
		return s.Add(ctx, r)
	}
	s.mu.Lock()
	_, exists := s.records[r.UUID]
	s.mu.Unlock()
	if exists {
		if err := s.UpdateRecord(ctx, r); err != nil {
			return "", err
		}
		return r.UUID, nil
	}
	return s.Add(ctx, r)
}

func (s *Store) KNNSearch(ctx context.Context, vector []float32, k int, filterExpr string) ([]dataset.KNNResult, error) {
	filter, err := dataset.ParseFilter(filterExpr)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]dataset.KNNResult, 0, len(s.records))
	for _, r := range s.records {
		if r.Vector == nil || !filter.Match(r) {
			continue
		}
		if len(r.Vector) != len(vector) {
			continue
		}
		results = append(results, dataset.KNNResult{Record: r, Distance: euclidean(vector, r.Vector)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func euclidean(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

func (s *Store) FullTextSearch(ctx context.Context, query string, k int, filterExpr string) ([]dataset.FTSResult, error) {
	filter, err := dataset.ParseFilter(filterExpr)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]dataset.FTSResult, 0)
	for _, r := range s.records {
		if !filter.Match(r) {
			continue
		}
		score := termFrequencyScore(query, r.Title, r.Content)
		if score > 0 {
			results = append(results, dataset.FTSResult{Record: r, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func termFrequencyScore(query, title, content string) float32 {
	terms := tokenize(query)
	if len(terms) == 0 {
		return 0
	}
	haystack := tokenize(title + " " + content)
	counts := make(map[string]int, len(haystack))
	for _, t := range haystack {
		counts[t]++
	}
	var score float32
	for _, t := range terms {
		if c, ok := counts[t]; ok {
			score += float32(c)
		}
	}
	// Title hits weigh more than body hits.
	titleTerms := tokenize(title)
	titleSet := make(map[string]bool, len(titleTerms))
	for _, t := range titleTerms {
		titleSet[t] = true
	}
	for _, t := range terms {
		if titleSet[t] {
			score += 2
		}
	}
	return score
}

func tokenize(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			cur = append(cur, r)
		case r >= 'A' && r <= 'Z':
			cur = append(cur, r+32)
		default:
			flush()
		}
	}
	flush()
	return out
}

func (s *Store) GetDatasetStats(ctx context.Context) (dataset.DatasetStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := dataset.DatasetStats{
		NumRows:      int64(len(s.records)),
		NumFragments: len(s.fragments),
		ByRecordType: make(map[string]int64),
		IndexCount:   len(s.indices),
		VersionCount: len(s.versions),
	}
	for _, r := range s.records {
		stats.ByRecordType[string(r.Type)]++
		stats.TotalBytes += int64(len(r.Content)) + int64(len(r.RawData))
	}
	return stats, nil
}

func (s *Store) GetFragmentStats(ctx context.Context) ([]dataset.FragmentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dataset.FragmentStats, len(s.fragments))
	copy(out, s.fragments)
	return out, nil
}

func (s *Store) ListIndices(ctx context.Context) ([]dataset.IndexInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dataset.IndexInfo, len(s.indices))
	copy(out, s.indices)
	return out, nil
}

func (s *Store) GetVersionHistory(ctx context.Context, limit int) ([]dataset.VersionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.versions) > limit {
		start = len(s.versions) - limit
	}
	out := make([]dataset.VersionInfo, len(s.versions)-start)
	copy(out, s.versions[start:])
	return out, nil
}

func (s *Store) CompactFiles(ctx context.Context) (dataset.CompactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.fragments)
	s.fragments = []dataset.FragmentStats{{ID: 0, NumRows: int64(len(s.records))}}
	s.recordVersionLocked("compact_files")
	return dataset.CompactionResult{FragmentsBefore: before, FragmentsAfter: 1}, nil
}

func (s *Store) CleanupOldVersions(ctx context.Context, olderThanVersions int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if olderThanVersions <= 0 || len(s.versions) <= olderThanVersions {
		return 0, nil
	}
	removed := len(s.versions) - olderThanVersions
	s.versions = s.versions[removed:]
	return removed, nil
}

func (s *Store) OptimizeIndices(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordVersionLocked("optimize_indices")
	return nil
}

func (s *Store) CreateScalarIndex(ctx context.Context, column string) error {
	return s.createIndex(column, dataset.IndexScalar, 0)
}

func (s *Store) CreateFTSIndex(ctx context.Context, column string) error {
	return s.createIndex(column, dataset.IndexFTS, 0)
}

func (s *Store) CreateVectorIndex(ctx context.Context, column string, dimension int) error {
	return s.createIndex(column, dataset.IndexVector, dimension)
}

func (s *Store) createIndex(column string, kind dataset.IndexKind, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range s.indices {
		if idx.Column == column && idx.Kind == kind {
			return fmt.Errorf("%w: %s index on %s", dataset.ErrIndexExists, kind, column)
		}
	}
	s.indices = append(s.indices, dataset.IndexInfo{
		Name:    fmt.Sprintf("%s_%s_idx", column, kind),
		Column:  column,
		Kind:    kind,
		Created: true,
	})
	s.recordVersionLocked("create_index:" + string(kind))
	return nil
}

var _ dataset.Dataset = (*Store)(nil)
