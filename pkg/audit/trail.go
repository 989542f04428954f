// Package audit implements the append-only sink for tool executions, stage
// completions, governance violations, and final metadata bundles. The
// reference sink serializes events to the structured log; a WORM or external
// store can be substituted behind the Sink interface without touching
// upstream code.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// Event kinds accepted by the trail.
const (
	KindToolExecution       = "tool_execution"
	KindStageCompletion     = "stage_completion"
	KindGovernanceViolation = "governance_violation"
	KindMetadataBundle      = "metadata_bundle"
)

// Tool execution phases.
const (
	PhaseStart   = "start"
	PhaseSuccess = "success"
	PhaseError   = "error"
)

// Event is one append-only audit record.
type Event struct {
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	TaskID    string         `json:"task_id"`
	Stage     models.Stage   `json:"stage,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Sink receives audit events. Implementations must be safe for concurrent
// use; the trail assumes nothing beyond append semantics.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// SlogSink writes events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink over the given logger, or the default logger
// when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "audit")}
}

func (s *SlogSink) Write(ctx context.Context, event Event) error {
	s.logger.LogAttrs(ctx, slog.LevelInfo, event.Kind,
		slog.String("timestamp", event.Timestamp.Format(time.RFC3339Nano)),
		slog.String("task_id", event.TaskID),
		slog.String("stage", string(event.Stage)),
		slog.Any("payload", event.Payload),
	)
	return nil
}

// Trail is the append-only audit trail. Writes are best-effort: a failing
// sink is logged and never disrupts the pipeline.
type Trail struct {
	sink   Sink
	logger *slog.Logger
}

// NewTrail creates a trail over the sink, defaulting to a slog sink.
func NewTrail(sink Sink) *Trail {
	if sink == nil {
		sink = NewSlogSink(nil)
	}
	return &Trail{sink: sink, logger: slog.Default().With("component", "audit")}
}

// ToolExecution records a tool invocation phase (start, success, error).
func (t *Trail) ToolExecution(ctx context.Context, taskID string, stage models.Stage, tool, phase string, extra map[string]any) {
	payload := map[string]any{"tool": tool, "phase": phase}
	for k, v := range extra {
		payload[k] = v
	}
	t.write(ctx, Event{
		Kind:      KindToolExecution,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
		Stage:     stage,
		Payload:   payload,
	})
}

// StageCompletion records a stage outcome.
func (t *Trail) StageCompletion(ctx context.Context, taskID string, stage models.Stage, result string, extra map[string]any) {
	payload := map[string]any{"result": result}
	for k, v := range extra {
		payload[k] = v
	}
	t.write(ctx, Event{
		Kind:      KindStageCompletion,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
		Stage:     stage,
		Payload:   payload,
	})
}

// Violation records a governance violation.
func (t *Trail) Violation(ctx context.Context, record models.ViolationRecord) {
	t.write(ctx, Event{
		Kind:      KindGovernanceViolation,
		Timestamp: time.Now().UTC(),
		TaskID:    record.TaskID,
		Stage:     record.Stage,
		Payload: map[string]any{
			"violation_kind": record.Kind,
			"details":        record.Details,
			"recorded_at":    record.Timestamp.Format(time.RFC3339Nano),
		},
	})
}

// MetadataBundle records the final per-task metadata bundle.
func (t *Trail) MetadataBundle(ctx context.Context, bundle models.MetadataBundle) {
	t.write(ctx, Event{
		Kind:      KindMetadataBundle,
		Timestamp: time.Now().UTC(),
		TaskID:    bundle.TaskID,
		Stage:     bundle.Role,
		Payload:   map[string]any{"bundle": bundle},
	})
}

func (t *Trail) write(ctx context.Context, event Event) {
	if err := t.sink.Write(ctx, event); err != nil {
		t.logger.Warn("audit write failed", "kind", event.Kind, "task_id", event.TaskID, "error", err)
	}
}
