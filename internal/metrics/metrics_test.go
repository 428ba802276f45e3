package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

func TestHistogramPercentiles(t *testing.T) {
	h := NewHistogram(100)
	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 5, h.Count())
	assert.InDelta(t, 3.0, h.Mean(), 0.0001)
	assert.InDelta(t, 3.0, h.Percentile(50), 0.0001)
	assert.InDelta(t, 1.0, h.Percentile(0), 0.0001)
	assert.InDelta(t, 5.0, h.Percentile(100), 0.0001)
	assert.InDelta(t, 4.5, h.Percentile(87.5), 0.0001)
	assert.InDelta(t, 1.0, h.Min(), 0.0001)
	assert.InDelta(t, 5.0, h.Max(), 0.0001)
}

func TestHistogramEmpty(t *testing.T) {
	h := NewHistogram(0)

	assert.Zero(t, h.Mean())
	assert.Zero(t, h.Percentile(95))
	assert.Zero(t, h.Min())
	assert.Zero(t, h.Max())
}

func TestHistogramTrimsOldest(t *testing.T) {
	h := NewHistogram(10)
	for i := 1; i <= 11; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	// One fifth of the window (2 samples) is dropped once the limit is crossed.
	assert.Equal(t, 9, h.Count())
	assert.InDelta(t, 3.0, h.Min(), 0.0001)

	h.Reset()
	assert.Zero(t, h.Count())
}

func TestClassificationMetricsSnapshot(t *testing.T) {
	m := NewClassificationMetrics()

	m.RecordClassification(archetype.KindArchetype, 2*time.Millisecond)
	m.RecordClassification(archetype.KindArchetype, 4*time.Millisecond)
	m.RecordClassification(archetype.KindFallback, 3*time.Millisecond)
	m.RecordClassification(archetype.KindUnknown, time.Millisecond)
	m.RecordLoad(10*time.Millisecond, nil)
	m.RecordLoad(20*time.Millisecond, errors.New("offline"))
	m.IncrementPersistErrors()

	stats := m.Snapshot()
	require.NotNil(t, stats)

	assert.Equal(t, uint64(4), stats.DecksClassified)
	assert.Equal(t, map[string]uint64{"archetype": 2, "fallback": 1, "unknown": 1}, stats.ByKind)
	assert.InDelta(t, 75.0, stats.RecognizedRate, 0.0001)
	assert.Equal(t, 4, stats.ClassifyLatency.Count)
	assert.InDelta(t, 2.5, stats.ClassifyLatency.Mean, 0.0001)
	assert.Equal(t, 2, stats.LoadLatency.Count)
	assert.Equal(t, uint64(1), stats.LoadErrors)
	assert.Equal(t, uint64(1), stats.PersistErrors)

	m.Reset()
	stats = m.Snapshot()
	assert.Zero(t, stats.DecksClassified)
	assert.Empty(t, stats.ByKind)
	assert.Zero(t, stats.RecognizedRate)
}
