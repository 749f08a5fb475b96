package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector tracks request counts and a sliding window of latencies.
type Collector struct {
	totalRequests uint64
	totalErrors   uint64
	statusCounts  map[int]uint64

	latencies  []time.Duration
	maxSamples int
	mu         sync.RWMutex
}

func NewCollector(maxSamples int) *Collector {
	return &Collector{
		statusCounts: make(map[int]uint64),
		latencies:    make([]time.Duration, 0, maxSamples),
		maxSamples:   maxSamples,
	}
}

func (c *Collector) Record(duration time.Duration, statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	if statusCode >= 400 {
		c.totalErrors++
	}
	c.statusCounts[statusCode]++

	// Keep the last maxSamples latencies.
	if len(c.latencies) >= c.maxSamples {
		c.latencies = c.latencies[1:]
	}
	c.latencies = append(c.latencies, duration)
}

// Stats is a point-in-time snapshot.
type Stats struct {
	TotalRequests uint64         `json:"total_requests"`
	TotalErrors   uint64         `json:"total_errors"`
	ErrorRate     float64        `json:"error_rate"`
	P50Latency    string         `json:"p50_latency"`
	P95Latency    string         `json:"p95_latency"`
	P99Latency    string         `json:"p99_latency"`
	StatusCounts  map[int]uint64 `json:"status_counts"`
}

func (c *Collector) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sorted := make([]time.Duration, len(c.latencies))
	copy(sorted, c.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	errorRate := 0.0
	if c.totalRequests > 0 {
		errorRate = float64(c.totalErrors) / float64(c.totalRequests)
	}

	sc := make(map[int]uint64, len(c.statusCounts))
	for k, v := range c.statusCounts {
		sc[k] = v
	}

	return Stats{
		TotalRequests: c.totalRequests,
		TotalErrors:   c.totalErrors,
		ErrorRate:     errorRate,
		P50Latency:    quantile(sorted, 0.50).String(),
		P95Latency:    quantile(sorted, 0.95).String(),
		P99Latency:    quantile(sorted, 0.99).String(),
		StatusCounts:  sc,
	}
}

func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
