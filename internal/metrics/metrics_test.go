package metrics_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"reel-monitor-go/internal/metrics"
)

func TestRegistry_EmptySnapshot(t *testing.T) {
	stats := metrics.NewRegistry().Snapshot()
	assert.Equal(t, 0, stats.TotalCalls)
	assert.Equal(t, 0.0, stats.TotalLatency)
	assert.Equal(t, 0.0, stats.AvgLatency)
}

func TestRegistry_Averages(t *testing.T) {
	r := metrics.NewRegistry()
	r.Record(1.0)
	r.Record(2.0)
	r.Record(0.5)

	stats := r.Snapshot()
	assert.Equal(t, 3, stats.TotalCalls)
	assert.Equal(t, 3.5, stats.TotalLatency)
	assert.Equal(t, 1.17, stats.AvgLatency, "average is rounded to two decimals")
}

func TestRegistry_ConcurrentRecord(t *testing.T) {
	r := metrics.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(0.1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Snapshot().TotalCalls)
}
