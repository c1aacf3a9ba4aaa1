package structurecomparer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks comparer performance metrics using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Computation counts
	computationsTotal  atomic.Uint64
	computationsFailed atomic.Uint64
	fieldsTotal        atomic.Uint64

	// Timing (stored as nanoseconds)
	computeTimeTotal atomic.Uint64
	computeTimeMin   atomic.Uint64
	computeTimeMax   atomic.Uint64

	// Output counts
	recommendationsTotal atomic.Uint64
	propagatedTotal      atomic.Uint64
	errorsTotal          atomic.Uint64
	warningsTotal        atomic.Uint64
	infosTotal           atomic.Uint64

	// Expression cache
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Per-stage timing
	stageTiming sync.Map // map[string]*stageMetrics
}

type stageMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.computeTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordComputation records a finished computation over fields fields.
func (m *Metrics) RecordComputation(duration time.Duration, fields int, failed bool) {
	m.computationsTotal.Add(1)
	if failed {
		m.computationsFailed.Add(1)
	}
	m.fieldsTotal.Add(uint64(fields)) //nolint:gosec // field counts are non-negative

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // durations are positive
	m.computeTimeTotal.Add(ns)

	for {
		old := m.computeTimeMin.Load()
		if ns >= old || m.computeTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.computeTimeMax.Load()
		if ns <= old || m.computeTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordRecommendations adds n produced recommendations.
func (m *Metrics) RecordRecommendations(n int) {
	m.recommendationsTotal.Add(uint64(n)) //nolint:gosec // n is a count
}

// RecordPropagated adds n fields that inherited an incompatible status.
func (m *Metrics) RecordPropagated(n int) {
	m.propagatedTotal.Add(uint64(n)) //nolint:gosec // n is a count
}

// RecordIssue records an issue based on severity.
func (m *Metrics) RecordIssue(severity IssueSeverity) {
	switch severity {
	case SeverityError:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	case SeverityInformation:
		m.infosTotal.Add(1)
	}
}

// RecordCacheHit records an expression cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records an expression cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(name string, duration time.Duration) {
	sm := m.getOrCreateStage(name)
	sm.invocations.Add(1)
	sm.totalTime.Add(uint64(duration.Nanoseconds())) //nolint:gosec // durations are positive
}

func (m *Metrics) getOrCreateStage(name string) *stageMetrics {
	if v, ok := m.stageTiming.Load(name); ok {
		return v.(*stageMetrics)
	}
	actual, _ := m.stageTiming.LoadOrStore(name, &stageMetrics{})
	return actual.(*stageMetrics)
}

// --- Query Methods ---

// ComputationsTotal returns the number of computations performed.
func (m *Metrics) ComputationsTotal() uint64 {
	return m.computationsTotal.Load()
}

// ComputationsFailed returns the number of computations aborted by a structural error.
func (m *Metrics) ComputationsFailed() uint64 {
	return m.computationsFailed.Load()
}

// FieldsTotal returns the number of fields processed.
func (m *Metrics) FieldsTotal() uint64 {
	return m.fieldsTotal.Load()
}

// RecommendationsTotal returns the number of recommendations produced.
func (m *Metrics) RecommendationsTotal() uint64 {
	return m.recommendationsTotal.Load()
}

// PropagatedTotal returns the number of fields that inherited an
// incompatible status.
func (m *Metrics) PropagatedTotal() uint64 {
	return m.propagatedTotal.Load()
}

// AverageComputeTime returns the average computation duration.
func (m *Metrics) AverageComputeTime() time.Duration {
	total := m.computationsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.computeTimeTotal.Load() / total) //nolint:gosec // within int64 range
}

// MinComputeTime returns the minimum computation duration.
func (m *Metrics) MinComputeTime() time.Duration {
	v := m.computeTimeMin.Load()
	if v == ^uint64(0) {
		return 0
	}
	return time.Duration(v) //nolint:gosec // within int64 range
}

// MaxComputeTime returns the maximum computation duration.
func (m *Metrics) MaxComputeTime() time.Duration {
	return time.Duration(m.computeTimeMax.Load()) //nolint:gosec // within int64 range
}

// CacheHitRate returns the expression cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// StageStats holds timing for one stage.
type StageStats struct {
	Name        string        `json:"name"`
	Invocations uint64        `json:"invocations"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
}

// StageStats returns statistics for a specific stage.
func (m *Metrics) StageStats(name string) (StageStats, bool) {
	v, ok := m.stageTiming.Load(name)
	if !ok {
		return StageStats{Name: name}, false
	}
	return toStageStats(name, v.(*stageMetrics)), true
}

// AllStageStats returns statistics for all stages.
func (m *Metrics) AllStageStats() []StageStats {
	var stats []StageStats
	m.stageTiming.Range(func(key, value any) bool {
		stats = append(stats, toStageStats(key.(string), value.(*stageMetrics)))
		return true
	})
	return stats
}

func toStageStats(name string, sm *stageMetrics) StageStats {
	invocations := sm.invocations.Load()
	total := sm.totalTime.Load()
	var avg time.Duration
	if invocations > 0 {
		avg = time.Duration(total / invocations) //nolint:gosec // within int64 range
	}
	return StageStats{
		Name:        name,
		Invocations: invocations,
		TotalTime:   time.Duration(total), //nolint:gosec // within int64 range
		AvgTime:     avg,
	}
}

// --- Export Methods ---

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	ComputationsTotal  uint64 `json:"computations_total"`
	ComputationsFailed uint64 `json:"computations_failed"`
	FieldsTotal        uint64 `json:"fields_total"`

	AvgComputeTimeNs uint64 `json:"avg_compute_time_ns"`
	MinComputeTimeNs uint64 `json:"min_compute_time_ns"`
	MaxComputeTimeNs uint64 `json:"max_compute_time_ns"`

	RecommendationsTotal uint64  `json:"recommendations_total"`
	PropagatedTotal      uint64  `json:"propagated_total"`
	ErrorsTotal          uint64  `json:"errors_total"`
	WarningsTotal        uint64  `json:"warnings_total"`
	InfosTotal           uint64  `json:"infos_total"`
	CacheHitRate         float64 `json:"cache_hit_rate"`

	Stages []StageStats `json:"stages,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	total := m.computationsTotal.Load()
	var avg uint64
	if total > 0 {
		avg = m.computeTimeTotal.Load() / total
	}
	minTime := m.computeTimeMin.Load()
	if minTime == ^uint64(0) {
		minTime = 0
	}

	return Snapshot{
		Timestamp:            time.Now(),
		ComputationsTotal:    total,
		ComputationsFailed:   m.computationsFailed.Load(),
		FieldsTotal:          m.fieldsTotal.Load(),
		AvgComputeTimeNs:     avg,
		MinComputeTimeNs:     minTime,
		MaxComputeTimeNs:     m.computeTimeMax.Load(),
		RecommendationsTotal: m.recommendationsTotal.Load(),
		PropagatedTotal:      m.propagatedTotal.Load(),
		ErrorsTotal:          m.errorsTotal.Load(),
		WarningsTotal:        m.warningsTotal.Load(),
		InfosTotal:           m.infosTotal.Load(),
		CacheHitRate:         m.CacheHitRate(),
		Stages:               m.AllStageStats(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.computationsTotal.Store(0)
	m.computationsFailed.Store(0)
	m.fieldsTotal.Store(0)
	m.computeTimeTotal.Store(0)
	m.computeTimeMin.Store(^uint64(0))
	m.computeTimeMax.Store(0)
	m.recommendationsTotal.Store(0)
	m.propagatedTotal.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)

	m.stageTiming.Range(func(key, _ any) bool {
		m.stageTiming.Delete(key)
		return true
	})
}
