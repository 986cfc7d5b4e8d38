// Package stats holds the agent's self-monitoring counters: six monotonic
// counters plus three tracked-metric gauges, all guarded by a lock
// independent of the registry's, matching the original PMDA's
// pmda_stats_container.
package stats

import "sync"

// Stats is the agent's self-monitoring state. All reads/writes go through
// its own mutex, distinct from the registry lock.
type Stats struct {
	mu sync.Mutex

	received               uint64
	parsed                 uint64
	dropped                uint64
	aggregated             uint64
	timeSpentParsingNS     uint64
	timeSpentAggregatingNS uint64

	trackedCounters  int64
	trackedGauges    int64
	trackedDurations int64
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

// IncReceived records one line handed to the aggregator.
func (s *Stats) IncReceived() {
	s.mu.Lock()
	s.received++
	s.mu.Unlock()
}

// IncParsed records one line that produced a Sample the registry accepted.
func (s *Stats) IncParsed() {
	s.mu.Lock()
	s.parsed++
	s.mu.Unlock()
}

// IncAggregated records one sample successfully committed to the registry.
func (s *Stats) IncAggregated() {
	s.mu.Lock()
	s.aggregated++
	s.mu.Unlock()
}

// IncDropped records one line rejected at any stage (parse or aggregate).
func (s *Stats) IncDropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// AddParseTimeNS accumulates wall-clock nanoseconds spent parsing.
func (s *Stats) AddParseTimeNS(ns int64) {
	if ns < 0 {
		return
	}
	s.mu.Lock()
	s.timeSpentParsingNS += uint64(ns)
	s.mu.Unlock()
}

// AddAggregateTimeNS accumulates wall-clock nanoseconds spent inside the
// registry's Submit call.
func (s *Stats) AddAggregateTimeNS(ns int64) {
	if ns < 0 {
		return
	}
	s.mu.Lock()
	s.timeSpentAggregatingNS += uint64(ns)
	s.mu.Unlock()
}

// SetTracked overwrites the three tracked-metric gauges at once; used by
// callers that already hold an authoritative count (tests, snapshots),
// as opposed to the IncTracked* methods driven by registry's per-metric
// creation hook.
func (s *Stats) SetTracked(counters, gauges, durations int) {
	s.mu.Lock()
	s.trackedCounters = int64(counters)
	s.trackedGauges = int64(gauges)
	s.trackedDurations = int64(durations)
	s.mu.Unlock()
}

// IncTrackedCounter records one newly tracked counter metric.
func (s *Stats) IncTrackedCounter() {
	s.mu.Lock()
	s.trackedCounters++
	s.mu.Unlock()
}

// IncTrackedGauge records one newly tracked gauge metric.
func (s *Stats) IncTrackedGauge() {
	s.mu.Lock()
	s.trackedGauges++
	s.mu.Unlock()
}

// IncTrackedDuration records one newly tracked duration metric.
func (s *Stats) IncTrackedDuration() {
	s.mu.Lock()
	s.trackedDurations++
	s.mu.Unlock()
}

// Reset clears the three tracked-metric gauges back to zero.
func (s *Stats) Reset() {
	s.mu.Lock()
	s.trackedCounters = 0
	s.trackedGauges = 0
	s.trackedDurations = 0
	s.mu.Unlock()
}

// Snapshot is a consistent, instantaneous copy of every field, used by the
// query surface and the debug dump writer.
type Snapshot struct {
	Received               uint64
	Parsed                 uint64
	Dropped                uint64
	Aggregated             uint64
	TimeSpentParsingNS     uint64
	TimeSpentAggregatingNS uint64
	TrackedCounters        int64
	TrackedGauges          int64
	TrackedDurations       int64
}

// Total returns the sum of the three tracked-metric gauges, exposed as
// the metrics_tracked self-metric's "total" instance.
func (s Snapshot) Total() int64 {
	return s.TrackedCounters + s.TrackedGauges + s.TrackedDurations
}

// Get returns a Snapshot of all fields, taken atomically under the lock.
func (s *Stats) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Received:               s.received,
		Parsed:                 s.parsed,
		Dropped:                s.dropped,
		Aggregated:             s.aggregated,
		TimeSpentParsingNS:     s.timeSpentParsingNS,
		TimeSpentAggregatingNS: s.timeSpentAggregatingNS,
		TrackedCounters:        s.trackedCounters,
		TrackedGauges:          s.trackedGauges,
		TrackedDurations:       s.trackedDurations,
	}
}
