// Package tools implements the enforcement wrapper around governed leaf
// operations (corpus searches, provider calls, retrieval queries). Every
// tool is registered with a declarative policy; the wrapper runs the
// governance checks before execution and audits the outcome afterwards,
// making rule violations architecturally impossible rather than merely
// discouraged. The output itself is not validated: a nil result is audited
// as a success and returned without error.
package tools

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/dansasser/mcg-agent/pkg/audit"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/models"
)

// RunContext is the ambient invocation context threaded through every tool
// call chain. The driver binds it at stage entry; no mutable global state is
// involved.
type RunContext struct {
	TaskID         string
	Stage          models.Stage
	UserPrompt     string
	Classification string
	// TransformerAvailable reports whether the deterministic transformer
	// can run; stages requiring it consult this before falling back.
	TransformerAvailable bool
}

// Args is the loose argument map passed to a tool.
type Args map[string]any

// TransformerDecisionKey is the Args key under which the wrapper stores the
// governance transformer decision for tools that require one.
const TransformerDecisionKey = "transformer_decision"

// Func is a governed leaf operation executed inside a stage's workspace.
type Func func(ctx context.Context, rc RunContext, args Args) (any, error)

// Policy binds a tool to its governance constraints.
type Policy struct {
	RequiredPermissions []string
	// AllowedCorpora restricts which corpus a corpus-parameterized call may
	// name; nil means the tool takes no corpus parameter.
	AllowedCorpora []models.Corpus
	// MaxCallsPerTask > 0 marks the tool as consuming the stage's external
	// call budget (the catalog holds the authoritative ceiling).
	MaxCallsPerTask            int
	RequiresRetrieval          bool
	RequiresTransformerPrimary bool
}

// GovernedTool wraps a Func with its policy. It is the only legitimate call
// path to the search layer and the provider.
type GovernedTool struct {
	name     string
	policy   Policy
	enforcer *governance.Enforcer
	trail    *audit.Trail
	fn       Func
}

// NewGovernedTool registers fn under the policy.
func NewGovernedTool(name string, policy Policy, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return &GovernedTool{name: name, policy: policy, enforcer: enforcer, trail: trail, fn: fn}
}

// Name returns the tool name used in audit records.
func (t *GovernedTool) Name() string { return t.name }

// Execute runs the governance checks, the tool, and the audit logging.
// Governance denials are recorded and re-raised; the underlying tool runs
// only after every check passes.
func (t *GovernedTool) Execute(ctx context.Context, rc RunContext, args Args) (any, error) {
	if err := t.enforcer.ValidateStagePermissions(rc.Stage, t.policy.RequiredPermissions, rc.TaskID); err != nil {
		t.auditDenial(ctx, rc, err)
		return nil, err
	}

	if len(t.policy.AllowedCorpora) > 0 {
		if corpus, ok := corpusArgument(args); ok {
			if err := t.checkCorpus(ctx, rc, corpus); err != nil {
				return nil, err
			}
		}
	}

	if t.policy.RequiresRetrieval {
		if err := t.enforcer.ValidateRetrievalAccess(rc.Stage, rc.TaskID); err != nil {
			t.auditDenial(ctx, rc, err)
			return nil, err
		}
	}

	if t.policy.MaxCallsPerTask > 0 {
		if err := t.enforcer.ValidateAPICall(rc.Stage, rc.TaskID); err != nil {
			t.auditDenial(ctx, rc, err)
			return nil, err
		}
	}

	if t.policy.RequiresTransformerPrimary {
		decision, err := t.enforcer.ValidateTransformerRequirement(rc.Stage, rc.TaskID, rc.TransformerAvailable)
		if err != nil {
			t.auditDenial(ctx, rc, err)
			return nil, err
		}
		if args == nil {
			args = Args{}
		}
		args[TransformerDecisionKey] = decision
	}

	t.trail.ToolExecution(ctx, rc.TaskID, rc.Stage, t.name, audit.PhaseStart, nil)

	start := time.Now()
	result, err := t.fn(ctx, rc, args)
	elapsed := time.Since(start)

	if err != nil {
		t.trail.ToolExecution(ctx, rc.TaskID, rc.Stage, t.name, audit.PhaseError, map[string]any{
			"error":       err.Error(),
			"duration_ms": elapsed.Milliseconds(),
		})
		return nil, err
	}

	if result == nil {
		// Not a violation: recorded so the trail shows the empty outcome.
		t.trail.ToolExecution(ctx, rc.TaskID, rc.Stage, t.name, audit.PhaseSuccess, map[string]any{
			"duration_ms": elapsed.Milliseconds(),
			"result":      "null",
		})
		return nil, nil
	}

	t.trail.ToolExecution(ctx, rc.TaskID, rc.Stage, t.name, audit.PhaseSuccess, map[string]any{
		"duration_ms": elapsed.Milliseconds(),
	})
	return result, nil
}

// checkCorpus validates a discovered corpus argument against the tool
// restriction and the stage's permission record.
func (t *GovernedTool) checkCorpus(ctx context.Context, rc RunContext, corpus models.Corpus) error {
	restricted := true
	for _, allowed := range t.policy.AllowedCorpora {
		if allowed == corpus {
			restricted = false
			break
		}
	}
	if restricted {
		details := map[string]any{
			"corpus":          string(corpus),
			"allowed_corpora": corpusNames(t.policy.AllowedCorpora),
			"tool":            t.name,
		}
		rec := t.enforcer.Violations().Append(rc.TaskID, models.ViolationUnauthorizedCorpusAccess, rc.Stage, details)
		t.trail.Violation(ctx, rec)
		return &governance.CorpusAccessError{
			ViolationError: governance.ViolationError{
				Kind:    models.ViolationUnauthorizedCorpusAccess,
				Stage:   rc.Stage,
				TaskID:  rc.TaskID,
				Details: details,
			},
			Corpus:  corpus,
			Allowed: t.policy.AllowedCorpora,
		}
	}
	if err := t.enforcer.ValidateCorpusAccess(rc.Stage, corpus, rc.TaskID); err != nil {
		t.auditDenial(ctx, rc, err)
		return err
	}
	return nil
}

// auditDenial writes the most recent violation for the task to the trail.
func (t *GovernedTool) auditDenial(ctx context.Context, rc RunContext, err error) {
	violations := t.enforcer.Violations().For(rc.TaskID)
	if len(violations) > 0 {
		t.trail.Violation(ctx, violations[len(violations)-1])
	}
	t.trail.ToolExecution(ctx, rc.TaskID, rc.Stage, t.name, audit.PhaseError, map[string]any{
		"error": err.Error(),
	})
}

// corpusArgument discovers the corpus parameter of a call: first by name
// ("corpus", then "corpus_type"), then positionally as any string value that
// matches the corpus enumeration.
func corpusArgument(args Args) (models.Corpus, bool) {
	for _, key := range []string{"corpus", "corpus_type"} {
		if raw, ok := args[key]; ok {
			if corpus, err := models.ParseCorpus(cast.ToString(raw)); err == nil {
				return corpus, true
			}
		}
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if value, ok := args[k].(string); ok {
			if corpus, err := models.ParseCorpus(value); err == nil {
				return corpus, true
			}
		}
	}
	return "", false
}

func corpusNames(corpora []models.Corpus) []string {
	return lo.Map(corpora, func(c models.Corpus, _ int) string { return string(c) })
}
