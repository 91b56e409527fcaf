package outbox

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
}
func (NoOpMetricsCollector) RecordBatchProcessed(count int, duration time.Duration)           {}
func (NoOpMetricsCollector) RecordPublishAttempt(eventType string, attempt int, success bool) {}

// RelayStats keeps process-local counters for the health endpoint.
type RelayStats struct {
	processed atomic.Uint64
	failed    atomic.Uint64
	retries   atomic.Uint64
	lastEvent atomic.Int64 // unix nanos
}

// StatsSnapshot is a point-in-time copy of RelayStats.
type StatsSnapshot struct {
	Processed     uint64
	Failed        uint64
	Retries       uint64
	LastEventTime time.Time
}

func NewRelayStats() *RelayStats {
	return &RelayStats{}
}

func (s *RelayStats) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	if !success {
		s.failed.Add(1)
		return
	}
	s.processed.Add(1)
	s.lastEvent.Store(time.Now().UnixNano())
}

func (s *RelayStats) RecordBatchProcessed(count int, duration time.Duration) {}

func (s *RelayStats) RecordPublishAttempt(eventType string, attempt int, success bool) {
	if attempt > 1 {
		s.retries.Add(1)
	}
}

func (s *RelayStats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Processed: s.processed.Load(),
		Failed:    s.failed.Load(),
		Retries:   s.retries.Load(),
	}
	if ns := s.lastEvent.Load(); ns > 0 {
		snap.LastEventTime = time.Unix(0, ns)
	}
	return snap
}
