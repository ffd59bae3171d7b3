// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Item metrics (pages, chunks or vectors, depending on the op)
	TotalItems int64
	MinItems   int64
	MaxItems   int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	Failures    int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Item stats (nil if the op carries no item counts)
	TotalItems *int64
	AvgItems   *float64
	MinItems   *int64
	MaxItems   *int64
}

// Snapshot represents the full pipeline statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Convert       *OperationSnapshot
	OCR           *OperationSnapshot
	Chunk         *OperationSnapshot
	Embed         *OperationSnapshot
	Integrate     *OperationSnapshot
	Job           *OperationSnapshot
}

// Operation names for the collector.
const (
	OpConvert   = "convert"
	OpOCR       = "ocr"
	OpChunk     = "chunk"
	OpEmbed     = "embed"
	OpIntegrate = "integrate"
	OpJob       = "job"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:  time.Duration(math.MaxInt64),
			MinItems: math.MaxInt64,
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordPhase records timing and the number of items the phase handled,
// such as pages recognized or vectors written.
func (c *Collector) RecordPhase(op string, duration time.Duration, items int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalItems += items
	if items < m.MinItems {
		m.MinItems = items
	}
	if items > m.MaxItems {
		m.MaxItems = items
	}
}

// RecordFailure counts a failed operation without timing it.
func (c *Collector) RecordFailure(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.getOrCreate(op).Failures++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeItems bool) *OperationSnapshot {
	if m == nil || (m.Count == 0 && m.Failures == 0) {
		return nil
	}

	snap := &OperationSnapshot{
		Count:    m.Count,
		Failures: m.Failures,
	}
	if m.Count > 0 {
		snap.TotalTimeMs = m.TotalTime.Milliseconds()
		snap.AvgTimeMs = float64(m.TotalTime.Milliseconds()) / float64(m.Count)
		snap.MinTimeMs = m.MinTime.Milliseconds()
		snap.MaxTimeMs = m.MaxTime.Milliseconds()
	}

	if includeItems && m.TotalItems > 0 {
		total := m.TotalItems
		avg := float64(m.TotalItems) / float64(m.Count)
		min := m.MinItems
		max := m.MaxItems

		// Reset sentinel values for display
		if min == math.MaxInt64 {
			min = 0
		}

		snap.TotalItems = &total
		snap.AvgItems = &avg
		snap.MinItems = &min
		snap.MaxItems = &max
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Convert:       snapshotOp(c.ops[OpConvert], false),
		OCR:           snapshotOp(c.ops[OpOCR], true),
		Chunk:         snapshotOp(c.ops[OpChunk], true),
		Embed:         snapshotOp(c.ops[OpEmbed], true),
		Integrate:     snapshotOp(c.ops[OpIntegrate], false),
		Job:           snapshotOp(c.ops[OpJob], false),
	}
}
