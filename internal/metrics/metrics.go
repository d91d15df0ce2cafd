// Package metrics tracks process-lifetime API usage counters. An explicit
// Registry instance (rather than package globals) keeps tests isolated and
// lets each binary own its own counters.
package metrics

import (
	"math"
	"sync"
)

// Stats is a point-in-time snapshot of the registry. Latencies are in
// seconds, rounded to 2 decimals.
type Stats struct {
	TotalCalls   int     `json:"total_calls"`
	TotalLatency float64 `json:"total_latency"`
	AvgLatency   float64 `json:"avg_latency"`
}

// Registry accumulates model-API call counts and latency. Safe for
// concurrent use; the lock is held only for the increment, never across a
// network call.
type Registry struct {
	mu           sync.Mutex
	totalCalls   int
	totalLatency float64
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Record registers one API attempt with its wall-clock latency in seconds.
func (r *Registry) Record(latencySec float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalCalls++
	r.totalLatency += latencySec
}

// Snapshot returns the accumulated counters.
func (r *Registry) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	avg := 0.0
	if r.totalCalls > 0 {
		avg = round2(r.totalLatency / float64(r.totalCalls))
	}
	return Stats{
		TotalCalls:   r.totalCalls,
		TotalLatency: round2(r.totalLatency),
		AvgLatency:   avg,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
