// Package services ties the pipeline driver, governance enforcer, and audit
// trail into the operations the HTTP surface exposes.
package services

import (
	"context"

	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/pipeline"
)

// ComposeService runs prompts through the governed pipeline and exposes
// per-task governance look-ups.
type ComposeService struct {
	driver   *pipeline.Driver
	enforcer *governance.Enforcer
}

// NewComposeService creates the compose service.
func NewComposeService(driver *pipeline.Driver, enforcer *governance.Enforcer) *ComposeService {
	return &ComposeService{driver: driver, enforcer: enforcer}
}

// Compose processes one prompt for the authenticated user. The result
// carries a task id even on failure so callers can correlate audit records.
func (s *ComposeService) Compose(ctx context.Context, userID, prompt string) (*pipeline.Result, error) {
	return s.driver.ProcessRequest(ctx, userID, prompt)
}

// GovernanceSummary returns the finalized governance summary for a task.
func (s *ComposeService) GovernanceSummary(taskID string) (governance.Summary, bool) {
	return s.enforcer.SummaryFor(taskID)
}

// Stats returns the per-stage success/failure counters.
func (s *ComposeService) Stats() pipeline.StageStatsSnapshot {
	return s.driver.Stats().Snapshot()
}
