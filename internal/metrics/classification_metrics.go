package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// ClassificationMetrics tracks classification latency and outcomes.
type ClassificationMetrics struct {
	ClassifyLatency *Histogram
	LoadLatency     *Histogram

	DecksClassified atomic.Uint64
	PersistErrors   atomic.Uint64
	LoadErrors      atomic.Uint64

	mu        sync.RWMutex
	byKind    map[archetype.Kind]uint64
	startTime time.Time
}

// NewClassificationMetrics creates an empty collector.
func NewClassificationMetrics() *ClassificationMetrics {
	return &ClassificationMetrics{
		ClassifyLatency: NewHistogram(defaultMaxSamples),
		LoadLatency:     NewHistogram(1000),
		byKind:          make(map[archetype.Kind]uint64),
		startTime:       time.Now(),
	}
}

// RecordClassification counts one classified deck.
func (m *ClassificationMetrics) RecordClassification(kind archetype.Kind, d time.Duration) {
	m.ClassifyLatency.Record(d)
	m.DecksClassified.Add(1)

	m.mu.Lock()
	m.byKind[kind]++
	m.mu.Unlock()
}

// RecordLoad records how long loading a format's definitions took.
func (m *ClassificationMetrics) RecordLoad(d time.Duration, err error) {
	m.LoadLatency.Record(d)
	if err != nil {
		m.LoadErrors.Add(1)
	}
}

// IncrementPersistErrors counts a failed write.
func (m *ClassificationMetrics) IncrementPersistErrors() {
	m.PersistErrors.Add(1)
}

// Stats is a point-in-time copy of the collected metrics.
type Stats struct {
	ClassifyLatency LatencyStats      `json:"classify_latency"`
	LoadLatency     LatencyStats      `json:"load_latency"`
	DecksClassified uint64            `json:"decks_classified"`
	ByKind          map[string]uint64 `json:"by_kind"`
	RecognizedRate  float64           `json:"recognized_rate"` // percentage of archetype or fallback results
	PersistErrors   uint64            `json:"persist_errors"`
	LoadErrors      uint64            `json:"load_errors"`
	Uptime          string            `json:"uptime"`
}

// LatencyStats summarizes a histogram in milliseconds.
type LatencyStats struct {
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Snapshot returns the current statistics.
func (m *ClassificationMetrics) Snapshot() *Stats {
	m.mu.RLock()
	byKind := make(map[string]uint64, len(m.byKind))
	var recognized uint64
	for kind, n := range m.byKind {
		byKind[kind.String()] = n
		if kind == archetype.KindArchetype || kind == archetype.KindFallback {
			recognized += n
		}
	}
	uptime := time.Since(m.startTime).Round(time.Second).String()
	m.mu.RUnlock()

	total := m.DecksClassified.Load()
	rate := 0.0
	if total > 0 {
		rate = float64(recognized) / float64(total) * 100
	}

	return &Stats{
		ClassifyLatency: latencyStats(m.ClassifyLatency),
		LoadLatency:     latencyStats(m.LoadLatency),
		DecksClassified: total,
		ByKind:          byKind,
		RecognizedRate:  rate,
		PersistErrors:   m.PersistErrors.Load(),
		LoadErrors:      m.LoadErrors.Load(),
		Uptime:          uptime,
	}
}

func latencyStats(h *Histogram) LatencyStats {
	return LatencyStats{
		Mean:  h.Mean(),
		P50:   h.Percentile(50),
		P95:   h.Percentile(95),
		P99:   h.Percentile(99),
		Min:   h.Min(),
		Max:   h.Max(),
		Count: h.Count(),
	}
}

// Reset clears all metrics.
func (m *ClassificationMetrics) Reset() {
	m.ClassifyLatency.Reset()
	m.LoadLatency.Reset()
	m.DecksClassified.Store(0)
	m.PersistErrors.Store(0)
	m.LoadErrors.Store(0)

	m.mu.Lock()
	clear(m.byKind)
	m.startTime = time.Now()
	m.mu.Unlock()
}
