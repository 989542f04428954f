package governance

import (
	"sync"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// CallTracker counts external model calls per task and stage. Increments are
// guarded by a mutex so concurrent attempts on the same task cannot lose
// updates.
type CallTracker struct {
	mu     sync.Mutex
	counts map[string]map[models.Stage]int
}

// NewCallTracker creates an empty tracker.
func NewCallTracker() *CallTracker {
	return &CallTracker{counts: make(map[string]map[models.Stage]int)}
}

// Count returns the current call count for the task and stage.
func (t *CallTracker) Count(taskID string, stage models.Stage) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[taskID][stage]
}

// Increment adds one call for the task and stage.
func (t *CallTracker) Increment(taskID string, stage models.Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.incrementLocked(taskID, stage)
}

func (t *CallTracker) incrementLocked(taskID string, stage models.Stage) {
	byStage, ok := t.counts[taskID]
	if !ok {
		byStage = make(map[models.Stage]int)
		t.counts[taskID] = byStage
	}
	byStage[stage]++
}

// CheckAndIncrement atomically verifies count < max and consumes a slot.
// It returns the attempted call number and whether the slot was granted.
// Permission grants a call and consumes the budget in one step; callers must
// not pre-check separately.
func (t *CallTracker) CheckAndIncrement(taskID string, stage models.Stage, max int) (attempted int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.counts[taskID][stage]
	if current >= max {
		return current + 1, false
	}
	t.incrementLocked(taskID, stage)
	return current + 1, true
}

// Snapshot returns a copy of the per-stage counts for the task.
func (t *CallTracker) Snapshot(taskID string) map[models.Stage]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[models.Stage]int, len(t.counts[taskID]))
	for stage, n := range t.counts[taskID] {
		out[stage] = n
	}
	return out
}

// Reset removes all counts for the task.
func (t *CallTracker) Reset(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, taskID)
}
