// Package metrics records timings for the dashboard's hot paths: track
// parsing, repository merges, visible-list recomputation and rendering.
//
// Metrics are collected in-memory with atomic operations so the loader's
// worker goroutines and the UI loop can record concurrently. Collection is
// on by default and disabled with CONDUCTOR_METRICS=0.
//
// Usage:
//
//	func parse() {
//	    defer metrics.Timer(metrics.ParseTrack)()
//	    // ...
//	}
package metrics

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("CONDUCTOR_METRICS") != "0")
}

// Enabled reports whether timings are being recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns recording on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates durations for one operation. Safe for concurrent use.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
	min   atomic.Int64 // ns, 0 until the first sample
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	for old := m.max.Load(); ns > old; old = m.max.Load() {
		if m.max.CompareAndSwap(old, ns) {
			break
		}
	}
	for old := m.min.Load(); old == 0 || ns < old; old = m.min.Load() {
		if m.min.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats snapshots the metric.
func (m *TimingMetric) Stats() TimingStats {
	count, total := m.count.Load(), m.total.Load()
	s := TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		MaxMs:   float64(m.max.Load()) / 1e6,
		MinMs:   float64(m.min.Load()) / 1e6,
	}
	if count > 0 {
		s.AvgMs = float64(total/count) / 1e6
	}
	return s
}

// Reset clears all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

// TimingStats is a snapshot of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing and returns the func that records the sample:
//
//	defer metrics.Timer(metrics.RepositoryMerge)()
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

// Global timing metrics.
var (
	ParseTrack       = newTimingMetric("parse_track")
	InitialScan      = newTimingMetric("initial_scan")
	RepositoryMerge  = newTimingMetric("repository_merge")
	VisibleRecompute = newTimingMetric("visible_recompute")
	UIRender         = newTimingMetric("ui_render")
	Export           = newTimingMetric("export")
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		ParseTrack,
		InitialScan,
		RepositoryMerge,
		VisibleRecompute,
		UIRender,
		Export,
	}
}

// ResetAll resets all timing metrics.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns stats for the metrics that have data.
func AllTimingStats() []TimingStats {
	metrics := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(metrics))
	for _, m := range metrics {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// Report formats every non-empty metric as one line each, for the debug log.
func Report() string {
	var b strings.Builder
	for _, s := range AllTimingStats() {
		fmt.Fprintf(&b, "%-18s n=%-6d avg=%.2fms max=%.2fms total=%.1fms\n", s.Name, s.Count, s.AvgMs, s.MaxMs, s.TotalMs)
	}
	return b.String()
}
