package pipeline

import (
	"sync"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// StageStats counts per-stage successes and failures. Counters are
// incremented synchronously as each stage completes.
type StageStats struct {
	mu      sync.Mutex
	success map[models.Stage]int
	fail    map[models.Stage]int
}

// NewStageStats creates zeroed counters.
func NewStageStats() *StageStats {
	return &StageStats{
		success: make(map[models.Stage]int),
		fail:    make(map[models.Stage]int),
	}
}

// Success records a successful stage completion.
func (s *StageStats) Success(stage models.Stage) {
	s.mu.Lock()
	s.success[stage]++
	s.mu.Unlock()
}

// Fail records a failed stage.
func (s *StageStats) Fail(stage models.Stage) {
	s.mu.Lock()
	s.fail[stage]++
	s.mu.Unlock()
}

// StageStatsSnapshot is a point-in-time copy of the counters.
type StageStatsSnapshot struct {
	Success      map[models.Stage]int `json:"success"`
	Fail         map[models.Stage]int `json:"fail"`
	TotalSuccess int                  `json:"total_success"`
	TotalFail    int                  `json:"total_fail"`
}

// Snapshot copies the counters.
func (s *StageStats) Snapshot() StageStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StageStatsSnapshot{
		Success: make(map[models.Stage]int, len(s.success)),
		Fail:    make(map[models.Stage]int, len(s.fail)),
	}
	for stage, n := range s.success {
		snap.Success[stage] = n
		snap.TotalSuccess += n
	}
	for stage, n := range s.fail {
		snap.Fail[stage] = n
		snap.TotalFail += n
	}
	return snap
}
