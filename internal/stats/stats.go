// Package stats maintains running counters, per session and process wide.
// Session counters are owned by the session goroutine; the aggregator
// uses atomics so the global view never blocks producers.
package stats

import (
	"sync/atomic"

	"github.com/treeguard/woodpecker-go/internal/observability"
)

// Session holds one connection's counters. Not shared between goroutines:
// the session's reader goroutine owns it exclusively.
type Session struct {
	Chunks       uint64
	Detections   uint64
	SoundsPlayed uint64
	LastCategory string
}

// Snapshot is an immutable process-wide view of the aggregator.
type Snapshot struct {
	ActiveSessions int64  `json:"active_sessions"`
	Chunks         uint64 `json:"chunks_processed"`
	Windows        uint64 `json:"windows_classified"`
	Detections     uint64 `json:"detections"`
	SoundsPlayed   uint64 `json:"sounds_played"`
	LastCategory   string `json:"last_category,omitempty"`
}

// Aggregator accumulates counters across sessions. All methods are safe
// for concurrent use.
type Aggregator struct {
	active       atomic.Int64
	chunks       atomic.Uint64
	windows      atomic.Uint64
	detections   atomic.Uint64
	soundsPlayed atomic.Uint64
	lastCategory atomic.Value // string

	metrics *observability.Metrics // optional Prometheus mirror
}

// NewAggregator creates an aggregator. The metrics mirror may be nil.
func NewAggregator(metrics *observability.Metrics) *Aggregator {
	a := &Aggregator{metrics: metrics}
	a.lastCategory.Store("")
	return a
}

// SessionStarted records a new connection.
func (a *Aggregator) SessionStarted() {
	a.active.Add(1)
	if a.metrics != nil {
		a.metrics.ActiveSessions.Inc()
	}
}

// SessionEnded records a disconnect.
func (a *Aggregator) SessionEnded() {
	a.active.Add(-1)
	if a.metrics != nil {
		a.metrics.ActiveSessions.Dec()
	}
}

// AddChunk counts one consumed audio chunk.
func (a *Aggregator) AddChunk() {
	a.chunks.Add(1)
	if a.metrics != nil {
		a.metrics.ChunksProcessed.Inc()
	}
}

// AddWindow counts one classified analysis window.
func (a *Aggregator) AddWindow() {
	a.windows.Add(1)
	if a.metrics != nil {
		a.metrics.WindowsClassified.Inc()
	}
}

// AddDetection counts one window at or above the confidence threshold.
func (a *Aggregator) AddDetection() {
	a.detections.Add(1)
	if a.metrics != nil {
		a.metrics.Detections.Inc()
	}
}

// AddSoundPlayed counts one dispatched reaction and records its category.
func (a *Aggregator) AddSoundPlayed(category string) {
	a.soundsPlayed.Add(1)
	a.lastCategory.Store(category)
	if a.metrics != nil {
		a.metrics.SoundsPlayed.WithLabelValues(category).Inc()
	}
}

// AddDecodeError counts one dropped inbound message.
func (a *Aggregator) AddDecodeError() {
	if a.metrics != nil {
		a.metrics.DecodeErrors.Inc()
	}
}

// AddInferenceError counts one window dropped by a classifier failure.
func (a *Aggregator) AddInferenceError() {
	if a.metrics != nil {
		a.metrics.InferenceErrors.Inc()
	}
}

// Snapshot returns the current process-wide totals.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		ActiveSessions: a.active.Load(),
		Chunks:         a.chunks.Load(),
		Windows:        a.windows.Load(),
		Detections:     a.detections.Load(),
		SoundsPlayed:   a.soundsPlayed.Load(),
		LastCategory:   a.lastCategory.Load().(string),
	}
}
