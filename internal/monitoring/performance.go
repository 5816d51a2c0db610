package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/contextframeai/contextframe-mcp/internal/ring"
)

// OperationHandle is returned by StartOperation and passed to EndOperation
// to close out the tracked operation.
type OperationHandle struct {
	ID        string
	Type      string
	AgentID   string
	Metadata  map[string]interface{}
	StartedAt time.Time
}

// Snapshot is one point in the 24h rolling history produced by the
// background snapshot task.
type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	OpsPerSecond    float64   `json:"ops_per_second"`
	AvgResponseMS   float64   `json:"avg_response_ms"`
	ErrorRate       float64   `json:"error_rate"`
	ActiveOps       int       `json:"active_ops"`
	QueueDepth      int       `json:"queue_depth"`
}

const snapshotHistoryCapacity = 1440 // 24h at one snapshot per minute

// PerformanceMonitor tracks in-flight operations and derives percentile
// latency and error-rate statistics per operation type. start_operation and
// end_operation must be paired by ID; an end_operation for an unknown ID is
// a no-op.
type PerformanceMonitor struct {
	collector *MetricsCollector

	mu     sync.Mutex
	active map[string]*OperationHandle
	done   map[string][]float64 // per-type completed durations (ms), bounded
	errors map[string]int
	total  map[string]int

	history *ring.Buffer[Snapshot]

	bgMu    sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	queueDepth func() int
}

const maxSamplesPerType = 5000

// NewPerformanceMonitor wires a PerformanceMonitor around collector.
// queueDepth, if non-nil, is polled by the background snapshot task to
// report outstanding work; a nil func reports zero.
func NewPerformanceMonitor(collector *MetricsCollector, queueDepth func() int) *PerformanceMonitor {
	return &PerformanceMonitor{
		collector:  collector,
		active:     make(map[string]*OperationHandle),
		done:       make(map[string][]float64),
		errors:     make(map[string]int),
		total:      make(map[string]int),
		history:    ring.New[Snapshot](snapshotHistoryCapacity),
		queueDepth: queueDepth,
	}
}

// StartOperation registers a new in-flight operation and returns its handle.
func (p *PerformanceMonitor) StartOperation(id, opType, agentID string, metadata map[string]interface{}) *OperationHandle {
	h := &OperationHandle{ID: id, Type: opType, AgentID: agentID, Metadata: metadata, StartedAt: time.Now()}
	p.mu.Lock()
	p.active[id] = h
	p.mu.Unlock()
	return h
}

// EndOperation closes out operation id with a terminal status. A call for
// an ID with no matching StartOperation is a no-op.
func (p *PerformanceMonitor) EndOperation(id string, status PerfStatus, resultSize int, errMsg string) {
	p.mu.Lock()
	h, ok := p.active[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.active, id)
	durationMS := float64(time.Since(h.StartedAt).Microseconds()) / 1000.0

	samples := p.done[h.Type]
	if len(samples) >= maxSamplesPerType {
		samples = samples[1:]
	}
	p.done[h.Type] = append(samples, durationMS)
	p.total[h.Type]++
	if status != StatusSuccess {
		p.errors[h.Type]++
	}
	p.mu.Unlock()

	p.collector.RecordPerf(PerfMetric{
		OperationID: id,
		Type:        h.Type,
		AgentID:     h.AgentID,
		Status:      status,
		DurationMS:  durationMS,
		ResultSize:  resultSize,
		Error:       errMsg,
		Timestamp:   time.Now(),
	})
}

// TypePercentiles reports p50/p90/p99/mean for the completed durations of
// one operation type.
type TypePercentiles struct {
	P50, P90, P99, Mean float64
	ErrorRate           float64
	Count               int
}

// PercentilesByType returns percentile stats for every operation type seen
// so far.
func (p *PerformanceMonitor) PercentilesByType() map[string]TypePercentiles {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]TypePercentiles, len(p.done))
	for t, samples := range p.done {
		if len(samples) == 0 {
			continue
		}
		sorted := append([]float64(nil), samples...)
		sort.Float64s(sorted)
		var sum float64
		for _, s := range sorted {
			sum += s
		}
		errRate := 0.0
		if total := p.total[t]; total > 0 {
			errRate = float64(p.errors[t]) / float64(total)
		}
		out[t] = TypePercentiles{
			P50:       percentileOfSorted(sorted, 0.50),
			P90:       percentileOfSorted(sorted, 0.90),
			P99:       percentileOfSorted(sorted, 0.99),
			Mean:      sum / float64(len(sorted)),
			ErrorRate: errRate,
			Count:     p.total[t],
		}
	}
	return out
}

func percentileOfSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// ActiveCount returns the number of currently in-flight operations.
func (p *PerformanceMonitor) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// History returns the 24h rolling snapshot history, oldest first.
func (p *PerformanceMonitor) History() []Snapshot {
	return p.history.Snapshot()
}

// Start begins the background snapshot task, taking one snapshot per
// minute. A no-op if already running.
func (p *PerformanceMonitor) Start(ctx context.Context) {
	p.bgMu.Lock()
	if p.running {
		p.bgMu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.bgMu.Unlock()

	p.wg.Add(1)
	go p.snapshotLoop(runCtx)
}

// Stop cancels the background snapshot task and waits for it to finish.
func (p *PerformanceMonitor) Stop() {
	p.bgMu.Lock()
	if !p.running {
		p.bgMu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.bgMu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *PerformanceMonitor) snapshotLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.history.Push(p.takeSnapshot())
		}
	}
}

func (p *PerformanceMonitor) takeSnapshot() Snapshot {
	p.mu.Lock()
	var totalOps, totalErrors int
	var sumDur float64
	var sumCount int
	for t, samples := range p.done {
		totalOps += p.total[t]
		totalErrors += p.errors[t]
		for _, d := range samples {
			sumDur += d
			sumCount++
		}
	}
	active := len(p.active)
	p.mu.Unlock()

	avg := 0.0
	if sumCount > 0 {
		avg = sumDur / float64(sumCount)
	}
	errRate := 0.0
	if totalOps > 0 {
		errRate = float64(totalErrors) / float64(totalOps)
	}
	depth := 0
	if p.queueDepth != nil {
		depth = p.queueDepth()
	}

	return Snapshot{
		Timestamp:     time.Now(),
		OpsPerSecond:  float64(totalOps) / 60.0,
		AvgResponseMS: avg,
		ErrorRate:     errRate,
		ActiveOps:     active,
		QueueDepth:    depth,
	}
}
