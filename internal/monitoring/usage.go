package monitoring

import (
	"sync"
	"time"
)

type docStats struct {
	count       int64
	lastTouch   time.Time
	successSum  float64 // running mean of success rate, Welford-style update
}

// UsageTracker wraps the C9 metrics collector with a document-keyed
// cache, maintaining incremental means and success rates in
// O(1) per update rather than recomputing from the ring buffer.
type UsageTracker struct {
	collector *MetricsCollector
	window    time.Duration

	mu   sync.Mutex
	docs map[string]*docStats
}

// NewUsageTracker wraps collector. window bounds which cache entries count
// as "active" in ActiveDocuments; entries whose last touch predates
// time.Now().Add(-window) are considered stale.
func NewUsageTracker(collector *MetricsCollector, window time.Duration) *UsageTracker {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &UsageTracker{collector: collector, window: window, docs: make(map[string]*docStats)}
}

// Touch records an access to docID, succeeded or not, and forwards the
// event to the underlying collector.
func (t *UsageTracker) Touch(docID, operation, agentID string, succeeded bool, ts time.Time) {
	t.collector.RecordUsage(UsageMetric{DocID: docID, Operation: operation, AgentID: agentID, Timestamp: ts})

	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.docs[docID]
	if !ok {
		s = &docStats{}
		t.docs[docID] = s
	}
	s.count++
	s.lastTouch = ts
	outcome := 0.0
	if succeeded {
		outcome = 1.0
	}
	s.successSum += (outcome - s.successSum) / float64(s.count)
}

// ActiveDocuments returns the IDs of documents touched within the
// configured window, most recently touched first is not guaranteed.
func (t *UsageTracker) ActiveDocuments(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := now.Add(-t.window)
	var out []string
	for id, s := range t.docs {
		if s.lastTouch.After(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// SuccessRate returns the running success rate for docID, or 0 if unseen.
func (t *UsageTracker) SuccessRate(docID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.docs[docID]
	if !ok {
		return 0
	}
	return s.successSum
}

// TemporalBuckets buckets recorded usage metrics into hour/day windows.
func (t *UsageTracker) TemporalBuckets() (hourly, daily map[string]int) {
	hourly = map[string]int{}
	daily = map[string]int{}
	for _, m := range t.collector.UsageSnapshot() {
		hourly[m.Timestamp.UTC().Format("2006-01-02T15")]++
		daily[m.Timestamp.UTC().Format("2006-01-02")]++
	}
	return hourly, daily
}
