package analytics

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/dataset"
)

// BenchmarkOp identifies a single benchmarked dataset operation.
type BenchmarkOp string

const (
	BenchSearch BenchmarkOp = "search"
	BenchInsert BenchmarkOp = "insert"
	BenchUpdate BenchmarkOp = "update"
	BenchScan   BenchmarkOp = "scan"
)

// simulated latency baselines (milliseconds), used only for insert/update
// which are never actually executed against the dataset by the benchmark.
const (
	insertBaselineMS = 8.0
	insertStdDevMS   = 2.0
	updateBaselineMS = 10.0
	updateStdDevMS   = 2.5
)

// BenchmarkResult reports percentile latencies and a throughput estimate
// for one benchmarked operation.
type BenchmarkResult struct {
	Operation  BenchmarkOp `json:"operation"`
	SampleSize int         `json:"sample_size"`
	P50        float64     `json:"p50"`
	P90        float64     `json:"p90"`
	P99        float64     `json:"p99"`
	Mean       float64     `json:"mean"`
	StdDev     float64     `json:"std_dev"`
	Max        float64     `json:"max"`
	Min        float64     `json:"min"`
	ThroughputOpsPerSec float64 `json:"throughput_ops_per_sec"`
}

// PerformanceBenchmark measures real dataset latency for search/scan and
// simulates insert/update latency around documented baselines so the
// dataset is never mutated by a benchmark run.
type PerformanceBenchmark struct {
	ds  dataset.Dataset
	rng *rand.Rand
}

// NewPerformanceBenchmark wires a PerformanceBenchmark around ds.
func NewPerformanceBenchmark(ds dataset.Dataset) *PerformanceBenchmark {
	return &PerformanceBenchmark{ds: ds, rng: rand.New(rand.NewSource(1))}
}

// Run benchmarks op with sampleSize iterations at the given concurrency.
func (b *PerformanceBenchmark) Run(ctx context.Context, op BenchmarkOp, sampleSize, concurrency int) (BenchmarkResult, error) {
	if sampleSize <= 0 {
		sampleSize = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		durations = make([]float64, sampleSize)
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, concurrency)
		firstErr  error
	)

	for i := 0; i < sampleSize; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			d, err := b.runOne(ctx, op, i)
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			durations[i] = d
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	if firstErr != nil {
		return BenchmarkResult{}, firstErr
	}

	return summarize(op, durations), nil
}

func (b *PerformanceBenchmark) runOne(ctx context.Context, op BenchmarkOp, i int) (float64, error) {
	switch op {
	case BenchSearch:
		vec := []float32{float32(i % 10), float32((i + 1) % 10), float32((i + 2) % 10)}
		start := time.Now()
		_, err := b.ds.KNNSearch(ctx, vec, 10, "")
		return float64(time.Since(start).Microseconds()) / 1000.0, err

	case BenchScan:
		limits := []int{10, 100, 1000}
		limit := limits[i%len(limits)]
		start := time.Now()
		out, errc := b.ds.Scanner(ctx, dataset.ScanOptions{Limit: limit})
		for range out {
		}
		err := <-errc
		return float64(time.Since(start).Microseconds()) / 1000.0, err

	case BenchInsert:
		return b.simulate(insertBaselineMS, insertStdDevMS), nil

	case BenchUpdate:
		return b.simulate(updateBaselineMS, updateStdDevMS), nil

	default:
		return 0, nil
	}
}

func (b *PerformanceBenchmark) simulate(baseline, stddev float64) float64 {
	v := baseline + b.rng.NormFloat64()*stddev
	if v < 0.1 {
		v = 0.1
	}
	return v
}

func summarize(op BenchmarkOp, durations []float64) BenchmarkResult {
	sorted := append([]float64(nil), durations...)
	sort.Float64s(sorted)

	var sum float64
	for _, d := range sorted {
		sum += d
	}
	mean := sum / float64(len(sorted))

	var variance float64
	for _, d := range sorted {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(sorted))

	result := BenchmarkResult{
		Operation:  op,
		SampleSize: len(sorted),
		P50:        percentileOf(sorted, 0.50),
		P90:        percentileOf(sorted, 0.90),
		P99:        percentileOf(sorted, 0.99),
		Mean:       mean,
		StdDev:     math.Sqrt(variance),
		Max:        sorted[len(sorted)-1],
		Min:        sorted[0],
	}
	if mean > 0 {
		result.ThroughputOpsPerSec = 1000.0 / mean
	}
	return result
}
