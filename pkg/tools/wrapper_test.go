package tools

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dansasser/mcg-agent/pkg/audit"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Write(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func setup() (*governance.Enforcer, *audit.Trail, *recordingSink) {
	sink := &recordingSink{}
	return governance.NewEnforcer(governance.NewCatalog(), governance.Options{}), audit.NewTrail(sink), sink
}

func rcFor(stage models.Stage) RunContext {
	return RunContext{
		TaskID:               "task-1",
		Stage:                stage,
		Classification:       "chat",
		TransformerAvailable: true,
	}
}

func TestGovernedTool_RunsToolAfterChecks(t *testing.T) {
	enforcer, trail, sink := setup()
	enforcer.BeginTask("task-1", "user-1", "chat")

	called := false
	tool := NewIdeatorSearchTool("search_personal", enforcer, trail, func(_ context.Context, _ RunContext, args Args) (any, error) {
		called = true
		assert.Equal(t, "personal", args["corpus"])
		return "ok", nil
	})

	result, err := tool.Execute(context.Background(), rcFor(models.StageIdeator), Args{"corpus": "personal", "q": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.True(t, called)

	kinds := sink.kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, audit.KindToolExecution, kinds[0]) // start
	assert.Equal(t, audit.KindToolExecution, kinds[1]) // success
}

func TestGovernedTool_DeniesUnauthorizedCorpus(t *testing.T) {
	enforcer, trail, sink := setup()
	enforcer.BeginTask("task-1", "user-1", "chat")

	tool := NewDrafterSearchTool("search_corpus", enforcer, trail, func(_ context.Context, _ RunContext, _ Args) (any, error) {
		t.Fatal("tool must not execute on denial")
		return nil, nil
	})

	_, err := tool.Execute(context.Background(), rcFor(models.StageDrafter), Args{"corpus": "personal"})

	var accessErr *governance.CorpusAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, models.CorpusPersonal, accessErr.Corpus)
	assert.Equal(t, []models.Corpus{models.CorpusSocial, models.CorpusPublished}, accessErr.Allowed)

	violations := enforcer.Violations().For("task-1")
	require.Len(t, violations, 1)
	assert.Equal(t, models.ViolationUnauthorizedCorpusAccess, violations[0].Kind)
	assert.Contains(t, sink.kinds(), audit.KindGovernanceViolation)
}

func TestGovernedTool_RetrievalGating(t *testing.T) {
	enforcer, trail, _ := setup()
	enforcer.BeginTask("task-1", "user-1", "chat")

	run := func(stage models.Stage) error {
		tool := NewGovernedTool("call_retrieval_endpoint", Policy{
			RequiredPermissions: []string{governance.PermRetrievalAccess},
			RequiresRetrieval:   true,
		}, enforcer, trail, func(_ context.Context, _ RunContext, _ Args) (any, error) {
			return "snippets", nil
		})
		_, err := tool.Execute(context.Background(), rcFor(stage), Args{})
		return err
	}

	// Under Ideator the permission check itself rejects retrieval.
	err := run(models.StageIdeator)
	var violErr *governance.ViolationError
	require.ErrorAs(t, err, &violErr)
	assert.Equal(t, "missing_permission_retrieval_access", violErr.Kind)

	// Under Critic the same call succeeds.
	assert.NoError(t, run(models.StageCritic))
}

func TestGovernedTool_CallBudgetConsumed(t *testing.T) {
	enforcer, trail, _ := setup()
	enforcer.BeginTask("task-1", "user-1", "chat")

	tool := NewDrafterProviderTool("call_external_model", enforcer, trail, func(_ context.Context, _ RunContext, _ Args) (any, error) {
		return "generated", nil
	})

	// First call fits the Drafter's budget of one.
	_, err := tool.Execute(context.Background(), rcFor(models.StageDrafter), Args{})
	require.NoError(t, err)

	// Second call exceeds it.
	_, err = tool.Execute(context.Background(), rcFor(models.StageDrafter), Args{})
	var limitErr *governance.APICallLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 1, limitErr.Max)
	assert.Equal(t, 2, limitErr.Attempted)
}

func TestGovernedTool_TransformerDecisionInjected(t *testing.T) {
	enforcer, trail, _ := setup()
	enforcer.BeginTask("task-1", "user-1", "chat")

	var got governance.TransformerDecision
	tool := NewRevisorTransformTool("revise_text", enforcer, trail, func(_ context.Context, _ RunContext, args Args) (any, error) {
		got = args[TransformerDecisionKey].(governance.TransformerDecision)
		return "revised", nil
	})

	_, err := tool.Execute(context.Background(), rcFor(models.StageRevisor), Args{})
	require.NoError(t, err)
	assert.True(t, got.UseTransformer)
	assert.Equal(t, governance.MethodTransformerPrimary, got.Method)
}

func TestGovernedTool_SummarizerTransformerUnavailable(t *testing.T) {
	enforcer, trail, _ := setup()
	enforcer.BeginTask("task-1", "user-1", "chat")

	tool := NewSummarizerTransformTool("summarize_text", enforcer, trail, func(_ context.Context, _ RunContext, _ Args) (any, error) {
		return "summary", nil
	})

	rc := rcFor(models.StageSummarizer)
	rc.TransformerAvailable = false

	_, err := tool.Execute(context.Background(), rc, Args{})
	var reqErr *governance.TransformerRequiredError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, models.StageSummarizer, reqErr.Stage)
}

func TestGovernedTool_ToolErrorAudited(t *testing.T) {
	enforcer, trail, sink := setup()
	enforcer.BeginTask("task-1", "user-1", "chat")

	tool := NewIdeatorSearchTool("search_personal", enforcer, trail, func(_ context.Context, _ RunContext, _ Args) (any, error) {
		return nil, errors.New("backend exploded")
	})

	_, err := tool.Execute(context.Background(), rcFor(models.StageIdeator), Args{"corpus": "personal"})
	require.Error(t, err)

	events := sink.kinds()
	require.Len(t, events, 2)
	assert.Equal(t, audit.KindToolExecution, events[1])
}

func TestCorpusArgument_Discovery(t *testing.T) {
	corpus, ok := corpusArgument(Args{"corpus": "social"})
	assert.True(t, ok)
	assert.Equal(t, models.CorpusSocial, corpus)

	corpus, ok = corpusArgument(Args{"corpus_type": "published"})
	assert.True(t, ok)
	assert.Equal(t, models.CorpusPublished, corpus)

	// Positional fallback: any string value matching the enumeration.
	corpus, ok = corpusArgument(Args{"target": "personal", "q": "hello"})
	assert.True(t, ok)
	assert.Equal(t, models.CorpusPersonal, corpus)

	_, ok = corpusArgument(Args{"q": "hello"})
	assert.False(t, ok)
}
