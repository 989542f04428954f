package services

import (
	"runtime"
)

// Memory pressure states reported by the monitor.
const (
	MemoryStateOK       = "ok"
	MemoryStateWarn     = "warn"
	MemoryStateCritical = "critical"
)

// Pressure thresholds as fractions of the configured limit.
const (
	memoryWarnFraction     = 0.80
	memoryCriticalFraction = 0.90
)

// MemoryMonitor reports heap usage against a configured limit. It observes
// only; the health endpoint reports the state, and nothing throttles on it.
type MemoryMonitor struct {
	limitBytes uint64
}

// NewMemoryMonitor creates a monitor. A zero limit disables pressure
// reporting (state stays ok).
func NewMemoryMonitor(limitBytes uint64) *MemoryMonitor {
	return &MemoryMonitor{limitBytes: limitBytes}
}

// MemoryStatus is a point-in-time pressure report.
type MemoryStatus struct {
	State      string  `json:"state"`
	UsedBytes  uint64  `json:"used_bytes"`
	LimitBytes uint64  `json:"limit_bytes,omitempty"`
	Fraction   float64 `json:"fraction"`
}

// Status reads current heap usage and classifies pressure.
func (m *MemoryMonitor) Status() MemoryStatus {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return m.classify(stats.HeapAlloc)
}

func (m *MemoryMonitor) classify(used uint64) MemoryStatus {
	status := MemoryStatus{State: MemoryStateOK, UsedBytes: used, LimitBytes: m.limitBytes}
	if m.limitBytes == 0 {
		return status
	}
	status.Fraction = float64(used) / float64(m.limitBytes)
	switch {
	case status.Fraction >= memoryCriticalFraction:
		status.State = MemoryStateCritical
	case status.Fraction >= memoryWarnFraction:
		status.State = MemoryStateWarn
	}
	return status
}
