package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// memorySink collects events for assertions.
type memorySink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *memorySink) Write(_ context.Context, event Event) error {
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *memorySink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestTrail_ToolExecution(t *testing.T) {
	sink := &memorySink{}
	trail := NewTrail(sink)

	trail.ToolExecution(context.Background(), "task-1", models.StageDrafter, "search_social", PhaseSuccess, map[string]any{
		"duration_ms": 12,
	})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, KindToolExecution, events[0].Kind)
	assert.Equal(t, "task-1", events[0].TaskID)
	assert.Equal(t, models.StageDrafter, events[0].Stage)
	assert.Equal(t, "search_social", events[0].Payload["tool"])
	assert.Equal(t, PhaseSuccess, events[0].Payload["phase"])
	assert.WithinDuration(t, time.Now().UTC(), events[0].Timestamp, time.Second)
}

func TestTrail_StageCompletionAndViolation(t *testing.T) {
	sink := &memorySink{}
	trail := NewTrail(sink)
	ctx := context.Background()

	trail.StageCompletion(ctx, "task-1", models.StageIdeator, "success", nil)
	trail.Violation(ctx, models.ViolationRecord{
		Timestamp: time.Now().UTC(),
		TaskID:    "task-1",
		Kind:      models.ViolationUnauthorizedCorpusAccess,
		Stage:     models.StageDrafter,
	})

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, KindStageCompletion, events[0].Kind)
	assert.Equal(t, "success", events[0].Payload["result"])
	assert.Equal(t, KindGovernanceViolation, events[1].Kind)
	assert.Equal(t, models.ViolationUnauthorizedCorpusAccess, events[1].Payload["violation_kind"])
}

func TestTrail_MetadataBundle(t *testing.T) {
	sink := &memorySink{}
	trail := NewTrail(sink)

	trail.MetadataBundle(context.Background(), models.MetadataBundle{
		TaskID:      "task-1",
		Role:        models.StageSummarizer,
		FinalOutput: "done",
	})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, KindMetadataBundle, events[0].Kind)
	assert.Equal(t, models.StageSummarizer, events[0].Stage)
}

func TestTrail_SinkFailureDoesNotPanic(t *testing.T) {
	trail := NewTrail(&memorySink{fail: true})
	assert.NotPanics(t, func() {
		trail.StageCompletion(context.Background(), "task-1", models.StageIdeator, "fail", nil)
	})
}
