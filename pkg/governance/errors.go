// Package governance implements the per-task policy state machine: the
// static policy catalog, call budgets, corpus and retrieval permissions,
// violation tracking, and finalization summaries. All tool invocations pass
// through the Enforcer before touching a corpus, the retrieval endpoint, or
// the external provider.
package governance

import (
	"fmt"
	"strings"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// ViolationError is the umbrella governance error. Concrete denial types
// embed it so callers can match on the umbrella with errors.As while still
// reading typed fields from the specific denial.
type ViolationError struct {
	Kind    string
	Stage   models.Stage
	TaskID  string
	Details map[string]any
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("governance violation (%s) at stage %s for task %s", e.Kind, e.Stage, e.TaskID)
}

// GovernanceKind returns the violation kind for audit records.
func (e *ViolationError) GovernanceKind() string { return e.Kind }

// APICallLimitError is raised when a stage attempts a model call beyond its
// per-task budget.
type APICallLimitError struct {
	ViolationError
	Max       int
	Attempted int
}

func (e *APICallLimitError) Error() string {
	return fmt.Sprintf("%s exceeded API call limit for task %s: max=%d, attempted=%d",
		e.Stage, e.TaskID, e.Max, e.Attempted)
}

// CorpusAccessError is raised when a stage queries a corpus outside its
// access set.
type CorpusAccessError struct {
	ViolationError
	Corpus  models.Corpus
	Allowed []models.Corpus
}

func (e *CorpusAccessError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, c := range e.Allowed {
		allowed[i] = string(c)
	}
	return fmt.Sprintf("%s is not authorized to access corpus %q (allowed: %s)",
		e.Stage, e.Corpus, strings.Join(allowed, ", "))
}

// RetrievalAccessError is raised when a stage other than Critic invokes the
// retrieval endpoint.
type RetrievalAccessError struct {
	ViolationError
	AuthorizedStages []models.Stage
}

func (e *RetrievalAccessError) Error() string {
	return fmt.Sprintf("%s is not authorized to use retrieval for task %s", e.Stage, e.TaskID)
}

// TransformerRequiredError is raised when a stage that must use the
// deterministic transformer finds it unavailable and has no fallback
// authorization.
type TransformerRequiredError struct {
	Stage  models.Stage
	TaskID string
	Reason string
}

func (e *TransformerRequiredError) Error() string {
	return fmt.Sprintf("transformer required for stage %s on task %s: %s", e.Stage, e.TaskID, e.Reason)
}

// Unwrap exposes the embedded umbrella error to errors.As.
func (e *APICallLimitError) Unwrap() error { return &e.ViolationError }

func (e *CorpusAccessError) Unwrap() error { return &e.ViolationError }

func (e *RetrievalAccessError) Unwrap() error { return &e.ViolationError }
