package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks runtime counters for an interactive session.
type Metrics struct {
	// Frame timing
	frameCount  atomic.Uint64
	frameTotal  atomic.Int64
	frameMin    atomic.Int64
	frameMax    atomic.Int64
	idleFrames  atomic.Uint64
	actionCount atomic.Uint64
	actionTotal atomic.Int64
	failed      atomic.Uint64

	// Hydration
	publications atomic.Uint64
	loadErrors   atomic.Uint64

	reloads atomic.Uint64

	startTime time.Time
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	FrameCount    uint64
	IdleFrames    uint64
	MinFrameTime  time.Duration
	MaxFrameTime  time.Duration
	AvgFrameTime  time.Duration
	ActionCount   uint64
	AvgActionTime time.Duration
	FailedActions uint64
	Publications  uint64
	LoadErrors    uint64
	ConfigReloads uint64
	Uptime        time.Duration
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	m.frameMin.Store(1<<63 - 1)
	return m
}

// RecordFrame records the time spent painting one frame.
func (m *Metrics) RecordFrame(d time.Duration) {
	ns := d.Nanoseconds()
	m.frameCount.Add(1)
	m.frameTotal.Add(ns)

	for {
		old := m.frameMin.Load()
		if ns >= old || m.frameMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.frameMax.Load()
		if ns <= old || m.frameMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordIdleFrame records a frame tick with nothing to paint.
func (m *Metrics) RecordIdleFrame() {
	m.idleFrames.Add(1)
}

// RecordAction records one applied user action.
func (m *Metrics) RecordAction(d time.Duration, ok bool) {
	m.actionCount.Add(1)
	m.actionTotal.Add(d.Nanoseconds())
	if !ok {
		m.failed.Add(1)
	}
}

// RecordPublication records one hydration publish and its failed loads.
func (m *Metrics) RecordPublication(failed int) {
	m.publications.Add(1)
	m.loadErrors.Add(uint64(failed))
}

// RecordReload records an applied configuration reload.
func (m *Metrics) RecordReload() {
	m.reloads.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		FrameCount:    m.frameCount.Load(),
		IdleFrames:    m.idleFrames.Load(),
		MaxFrameTime:  time.Duration(m.frameMax.Load()),
		ActionCount:   m.actionCount.Load(),
		FailedActions: m.failed.Load(),
		Publications:  m.publications.Load(),
		LoadErrors:    m.loadErrors.Load(),
		ConfigReloads: m.reloads.Load(),
		Uptime:        time.Since(m.startTime),
	}
	if s.FrameCount > 0 {
		s.MinFrameTime = time.Duration(m.frameMin.Load())
		s.AvgFrameTime = time.Duration(m.frameTotal.Load() / int64(s.FrameCount))
	}
	if s.ActionCount > 0 {
		s.AvgActionTime = time.Duration(m.actionTotal.Load() / int64(s.ActionCount))
	}
	return s
}
