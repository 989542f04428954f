package governance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dansasser/mcg-agent/pkg/models"
)

func newTestEnforcer() *Enforcer {
	return NewEnforcer(NewCatalog(), Options{})
}

func TestEnforcer_APICallBudget(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	// Drafter budget is exactly one call.
	require.NoError(t, e.ValidateAPICall(models.StageDrafter, "task-1"))

	err := e.ValidateAPICall(models.StageDrafter, "task-1")
	var limitErr *APICallLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 1, limitErr.Max)
	assert.Equal(t, 2, limitErr.Attempted)
	assert.Equal(t, models.StageDrafter, limitErr.Stage)

	violations := e.Violations().For("task-1")
	require.Len(t, violations, 1)
	assert.Equal(t, models.ViolationAPICallLimitExceeded, violations[0].Kind)
}

func TestEnforcer_SummarizerHasNoBudget(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	err := e.ValidateAPICall(models.StageSummarizer, "task-1")
	var limitErr *APICallLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 0, limitErr.Max)
	assert.Equal(t, 1, limitErr.Attempted)
}

func TestEnforcer_CorpusAccessDenied(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	err := e.ValidateCorpusAccess(models.StageDrafter, models.CorpusPersonal, "task-1")
	var accessErr *CorpusAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, models.CorpusPersonal, accessErr.Corpus)
	assert.Equal(t, []models.Corpus{models.CorpusSocial, models.CorpusPublished}, accessErr.Allowed)

	violations := e.Violations().For("task-1")
	require.Len(t, violations, 1)
	assert.Equal(t, models.ViolationUnauthorizedCorpusAccess, violations[0].Kind)
	assert.Equal(t, models.StageDrafter, violations[0].Stage)
}

func TestEnforcer_CorpusAccessAllowed(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	assert.NoError(t, e.ValidateCorpusAccess(models.StageDrafter, models.CorpusSocial, "task-1"))
	assert.NoError(t, e.ValidateCorpusAccess(models.StageIdeator, models.CorpusPersonal, "task-1"))
	assert.Empty(t, e.Violations().For("task-1"))
}

func TestEnforcer_CorpusRateLimit(t *testing.T) {
	e := NewEnforcer(NewCatalog(), Options{CorpusRateLimit: 3})
	e.BeginTask("task-1", "user-1", "standard")

	// Exactly the limit succeeds.
	for i := 0; i < 3; i++ {
		require.NoError(t, e.ValidateCorpusAccess(models.StageIdeator, models.CorpusSocial, "task-1"))
	}
	// The next query is rejected.
	err := e.ValidateCorpusAccess(models.StageIdeator, models.CorpusSocial, "task-1")
	var violErr *ViolationError
	require.ErrorAs(t, err, &violErr)
	assert.Equal(t, models.ViolationCorpusRateLimitExceeded, violErr.Kind)

	// Another corpus has its own window.
	assert.NoError(t, e.ValidateCorpusAccess(models.StageIdeator, models.CorpusPublished, "task-1"))
}

func TestEnforcer_RetrievalGating(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	err := e.ValidateRetrievalAccess(models.StageIdeator, "task-1")
	var retrievalErr *RetrievalAccessError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Equal(t, []models.Stage{models.StageCritic}, retrievalErr.AuthorizedStages)

	assert.NoError(t, e.ValidateRetrievalAccess(models.StageCritic, "task-1"))

	violations := e.Violations().For("task-1")
	require.Len(t, violations, 1)
	assert.Equal(t, models.ViolationUnauthorizedRetrievalAccess, violations[0].Kind)
}

func TestEnforcer_StagePermissions(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	assert.NoError(t, e.ValidateStagePermissions(models.StageIdeator, []string{PermCorpusAccess, PermOutlineGeneration}, "task-1"))

	err := e.ValidateStagePermissions(models.StageDrafter, []string{PermRetrievalAccess}, "task-1")
	var violErr *ViolationError
	require.ErrorAs(t, err, &violErr)
	assert.Equal(t, "missing_permission_retrieval_access", violErr.Kind)

	err = e.ValidateStagePermissions(models.Stage("editor"), nil, "task-1")
	require.ErrorAs(t, err, &violErr)
	assert.Equal(t, models.ViolationInvalidStageRole, violErr.Kind)
}

func TestEnforcer_TransformerDecisions(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	// Revisor prefers the transformer and can fall back within budget.
	decision, err := e.ValidateTransformerRequirement(models.StageRevisor, "task-1", true)
	require.NoError(t, err)
	assert.True(t, decision.UseTransformer)
	assert.True(t, decision.CanFallbackToAPI)
	assert.Equal(t, MethodTransformerPrimary, decision.Method)

	// Summarizer with the transformer available runs transformer-only.
	decision, err = e.ValidateTransformerRequirement(models.StageSummarizer, "task-1", true)
	require.NoError(t, err)
	assert.True(t, decision.UseTransformer)
	assert.False(t, decision.CanFallbackToAPI)
	assert.Equal(t, MethodTransformerOnly, decision.Method)
}

func TestEnforcer_TransformerRequiredUnavailable(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	_, err := e.ValidateTransformerRequirement(models.StageSummarizer, "task-1", false)
	var reqErr *TransformerRequiredError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, models.StageSummarizer, reqErr.Stage)
	assert.Contains(t, reqErr.Reason, "no API fallback permission")

	violations := e.Violations().For("task-1")
	require.Len(t, violations, 1)
	assert.Equal(t, models.ViolationTransformerRequiredUnavailable, violations[0].Kind)
}

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) AuthorizeEmergency(string) bool { return true }

func TestEnforcer_EmergencyAuthorizationPermitsFallback(t *testing.T) {
	e := newTestEnforcer()
	e.SetAuthorizer(allowAllAuthorizer{})
	e.BeginTask("task-1", "user-1", "standard")

	decision, err := e.ValidateTransformerRequirement(models.StageSummarizer, "task-1", false)
	require.NoError(t, err)
	assert.False(t, decision.UseTransformer)
	assert.True(t, decision.CanFallbackToAPI)
	assert.Equal(t, MethodAPIFallback, decision.Method)
}

func TestEnforcer_RevisorFallbackUnavailableTransformer(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	decision, err := e.ValidateTransformerRequirement(models.StageRevisor, "task-1", false)
	require.NoError(t, err)
	assert.False(t, decision.UseTransformer)
	assert.True(t, decision.CanFallbackToAPI)
	assert.Equal(t, MethodAPIFallback, decision.Method)
}

func TestEnforcer_FinalizeIdempotent(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "sensitive")

	require.NoError(t, e.ValidateAPICall(models.StageIdeator, "task-1"))
	require.NoError(t, e.ValidateCorpusAccess(models.StageIdeator, models.CorpusPersonal, "task-1"))
	_ = e.ValidateCorpusAccess(models.StageDrafter, models.CorpusPersonal, "task-1") // denied

	first := e.Finalize("task-1")
	second := e.Finalize("task-1")

	assert.Equal(t, first.FinalizedAt, second.FinalizedAt)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.TotalAPICalls)
	assert.Equal(t, 1, first.CorpusQueries)
	assert.Equal(t, 1, first.ViolationCount)
	assert.Equal(t, "sensitive", first.Classification)

	got, ok := e.SummaryFor("task-1")
	assert.True(t, ok)
	assert.Equal(t, first, got)
}

func TestEnforcer_SweepEvictsOldTasks(t *testing.T) {
	e := NewEnforcer(NewCatalog(), Options{RetentionAge: time.Nanosecond})
	e.BeginTask("task-1", "user-1", "standard")
	require.NoError(t, e.ValidateAPICall(models.StageIdeator, "task-1"))
	e.Finalize("task-1")

	time.Sleep(time.Millisecond)
	e.sweep(time.Now().UTC())

	_, ok := e.SummaryFor("task-1")
	assert.False(t, ok)
	assert.Equal(t, 0, e.Tracker().Count("task-1", models.StageIdeator))
}

func TestEnforcer_ErrorsMatchUmbrella(t *testing.T) {
	e := newTestEnforcer()
	e.BeginTask("task-1", "user-1", "standard")

	err := e.ValidateCorpusAccess(models.StageDrafter, models.CorpusPersonal, "task-1")
	var accessErr *CorpusAccessError
	assert.True(t, errors.As(err, &accessErr))
	assert.Equal(t, models.ViolationUnauthorizedCorpusAccess, accessErr.GovernanceKind())
}
