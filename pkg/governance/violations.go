package governance

import (
	"sync"
	"time"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// ViolationLog is the append-only per-task list of rule-violation records.
type ViolationLog struct {
	mu     sync.Mutex
	byTask map[string][]models.ViolationRecord
}

// NewViolationLog creates an empty log.
func NewViolationLog() *ViolationLog {
	return &ViolationLog{byTask: make(map[string][]models.ViolationRecord)}
}

// Append records a violation for the task.
func (l *ViolationLog) Append(taskID, kind string, stage models.Stage, details map[string]any) models.ViolationRecord {
	rec := models.ViolationRecord{
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
		Kind:      kind,
		Stage:     stage,
		Details:   details,
	}
	l.mu.Lock()
	l.byTask[taskID] = append(l.byTask[taskID], rec)
	l.mu.Unlock()
	return rec
}

// For returns a copy of the task's violations in insertion order.
func (l *ViolationLog) For(taskID string) []models.ViolationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ViolationRecord(nil), l.byTask[taskID]...)
}

// Count returns the number of violations recorded for the task.
func (l *ViolationLog) Count(taskID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byTask[taskID])
}

// Reset removes all violations for the task.
func (l *ViolationLog) Reset(taskID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byTask, taskID)
}
