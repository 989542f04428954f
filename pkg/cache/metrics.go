package cache

import "sync/atomic"

// Metrics counts cache activity at the cache boundary.
type Metrics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	items     atomic.Int64
	bytes     atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Items     int64 `json:"items"`
	Bytes     int64 `json:"bytes"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
		Items:     m.items.Load(),
		Bytes:     m.bytes.Load(),
	}
}
