package llm

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// AgentCounts tallies calls attributed to one agent label.
type AgentCounts struct {
	Calls  int `json:"calls"`
	Errors int `json:"errors"`
}

// StatsSnapshot is a point-in-time aggregate of model call latencies.
type StatsSnapshot struct {
	Count    int                    `json:"count"`
	MinMs    int64                  `json:"min_ms"`
	MaxMs    int64                  `json:"max_ms"`
	AvgMs    float64                `json:"avg_ms"`
	P50Ms    float64                `json:"p50_ms"`
	P95Ms    float64                `json:"p95_ms"`
	P99Ms    float64                `json:"p99_ms"`
	ByAgent  map[string]AgentCounts `json:"by_agent"`
}

// CallStats tracks recent model call latencies within a rolling window,
// plus cumulative per-agent call and error counts.
type CallStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	byAgent map[string]AgentCounts
}

func NewCallStats(maxAge time.Duration) *CallStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &CallStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		byAgent: make(map[string]AgentCounts),
	}
}

func (s *CallStats) Record(label string, durationMs int64, failed bool) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
	})

	c := s.byAgent[label]
	c.Calls++
	if failed {
		c.Errors++
	}
	s.byAgent[label] = c
}

func (s *CallStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)

	byAgent := make(map[string]AgentCounts, len(s.byAgent))
	for k, v := range s.byAgent {
		byAgent[k] = v
	}

	if len(s.samples) == 0 {
		return StatsSnapshot{ByAgent: byAgent}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:   len(values),
		MinMs:   values[0],
		MaxMs:   values[len(values)-1],
		AvgMs:   float64(sum) / float64(len(values)),
		P50Ms:   percentile(values, 50),
		P95Ms:   percentile(values, 95),
		P99Ms:   percentile(values, 99),
		ByAgent: byAgent,
	}
}

func (s *CallStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
