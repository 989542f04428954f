package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/dansasser/mcg-agent/pkg/audit"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/models"
	"github.com/dansasser/mcg-agent/pkg/provider"
	"github.com/dansasser/mcg-agent/pkg/tools"
	"github.com/dansasser/mcg-agent/pkg/transform"
)

// Result is the outcome of one pipeline run. TaskID and Governance are set
// even when the run fails so callers can correlate with audit records.
type Result struct {
	TaskID     string                 `json:"task_id"`
	FinalStage models.Stage           `json:"final_stage"`
	Content    string                 `json:"content"`
	Bundle     *models.MetadataBundle `json:"metadata,omitempty"`
	Governance governance.Summary     `json:"governance"`
}

// textResult is the shape returned by revise/summarize/generate tools.
type textResult struct {
	Text string
	Info provider.Info
}

// Config wires the driver's collaborators.
type Config struct {
	// External is the chat-completions provider; nil disables external
	// generation and the pipeline runs pass-through at Drafter.
	External provider.Provider
	// Transformer is the deterministic provider used at Revisor and
	// Summarizer.
	Transformer provider.Provider
	// TransformerAvailable reflects transformer health; when false the
	// Summarizer can only proceed under emergency authorization.
	TransformerAvailable bool
}

// Driver sequences the five stages for a single task. Stages never overlap
// within a task; distinct tasks may run concurrently over the shared
// catalog, enforcer, cache, and audit trail.
type Driver struct {
	enforcer             *governance.Enforcer
	assembler            *Assembler
	external             provider.Provider
	transformer          provider.Provider
	trail                *audit.Trail
	stats                *StageStats
	transformerAvailable bool

	drafterGenerate     *tools.GovernedTool
	revisorTransform    *tools.GovernedTool
	revisorFallback     *tools.GovernedTool
	summarizerTransform *tools.GovernedTool
}

// NewDriver builds the pipeline driver and registers its governed tools.
func NewDriver(enforcer *governance.Enforcer, assembler *Assembler, trail *audit.Trail, cfg Config) *Driver {
	d := &Driver{
		enforcer:             enforcer,
		assembler:            assembler,
		external:             cfg.External,
		transformer:          cfg.Transformer,
		trail:                trail,
		stats:                NewStageStats(),
		transformerAvailable: cfg.TransformerAvailable,
	}

	if d.external != nil {
		d.drafterGenerate = tools.NewDrafterProviderTool("call_external_model", enforcer, trail,
			func(ctx context.Context, _ tools.RunContext, args tools.Args) (any, error) {
				text, info, err := d.external.Generate(ctx, cast.ToString(args["prompt"]), provider.Params{})
				if err != nil {
					return nil, err
				}
				return textResult{Text: text, Info: info}, nil
			})
		d.revisorFallback = tools.NewRevisorProviderTool("call_external_model", enforcer, trail,
			func(ctx context.Context, _ tools.RunContext, args tools.Args) (any, error) {
				text, info, err := d.external.Revise(ctx, cast.ToString(args["text"]), nil)
				if err != nil {
					return nil, err
				}
				return textResult{Text: text, Info: info}, nil
			})
	}

	d.revisorTransform = tools.NewRevisorTransformTool("revise_text", enforcer, trail,
		func(ctx context.Context, rc tools.RunContext, args tools.Args) (any, error) {
			return d.runTransformerOp(ctx, rc, args, provider.OpRevise)
		})
	d.summarizerTransform = tools.NewSummarizerTransformTool("summarize_text", enforcer, trail,
		func(ctx context.Context, rc tools.RunContext, args tools.Args) (any, error) {
			return d.runTransformerOp(ctx, rc, args, provider.OpSummarize)
		})

	return d
}

// Stats returns the per-stage success/failure counters.
func (d *Driver) Stats() *StageStats { return d.stats }

// runTransformerOp executes a revise/summarize under the governance
// transformer decision injected by the wrapper.
func (d *Driver) runTransformerOp(ctx context.Context, rc tools.RunContext, args tools.Args, op string) (any, error) {
	decision, _ := args[tools.TransformerDecisionKey].(governance.TransformerDecision)
	text := cast.ToString(args["text"])

	if decision.UseTransformer {
		var (
			out  string
			info provider.Info
			err  error
		)
		if op == provider.OpSummarize {
			out, info, err = d.transformer.Summarize(ctx, text, nil)
		} else {
			out, info, err = d.transformer.Revise(ctx, text, nil)
		}
		if err != nil {
			return nil, err
		}
		return textResult{Text: out, Info: info}, nil
	}

	if decision.CanFallbackToAPI && d.revisorFallback != nil && op == provider.OpRevise {
		return d.revisorFallback.Execute(ctx, rc, tools.Args{"text": text})
	}

	// No transformer and no authorized fallback path left the text as-is;
	// the enforcer has already rejected the cases that must not reach here.
	return textResult{Text: text, Info: provider.Info{Operation: op, Note: "pass-through"}}, nil
}

// taskRun carries per-request state across stages.
type taskRun struct {
	io           models.StageIO
	attributions []models.Attribution
}

// ProcessRequest drives one prompt through the full pipeline.
func (d *Driver) ProcessRequest(ctx context.Context, userID, prompt string) (*Result, error) {
	taskID := uuid.New().String()
	classification := Classify(prompt)
	d.enforcer.BeginTask(taskID, userID, classification)

	result := &Result{TaskID: taskID}
	state := &taskRun{
		io: models.StageIO{
			TaskID:   taskID,
			Content:  prompt,
			Metadata: &models.Metadata{},
		},
		attributions: []models.Attribution{
			models.NewAttribution("user_input", "", prompt, models.StageIdeator, taskID),
		},
	}

	fail := func(stage models.Stage, err error) (*Result, error) {
		d.stats.Fail(stage)
		d.trail.StageCompletion(ctx, taskID, stage, "fail", map[string]any{"error": err.Error()})
		result.Governance = d.enforcer.Finalize(taskID)
		return result, err
	}

	for _, stage := range d.enforcer.Catalog().StagesInOrder() {
		rc := tools.RunContext{
			TaskID:               taskID,
			Stage:                stage,
			UserPrompt:           prompt,
			Classification:       classification,
			TransformerAvailable: d.transformerAvailable,
		}

		if err := d.validateStageExecution(stage, classification, taskID); err != nil {
			return fail(stage, err)
		}
		if err := d.runStage(ctx, rc, state); err != nil {
			return fail(stage, err)
		}
		if err := d.validateStageOutput(stage, state.io.Content, taskID); err != nil {
			return fail(stage, err)
		}

		d.stats.Success(stage)
		d.trail.StageCompletion(ctx, taskID, stage, "success", nil)
		state.io.Stage = stage
	}

	bundle := d.buildBundle(prompt, state)
	result.FinalStage = models.StageSummarizer
	result.Content = state.io.Content
	result.Bundle = bundle
	result.Governance = d.enforcer.Finalize(taskID)
	d.trail.MetadataBundle(ctx, *bundle)
	return result, nil
}

// runStage dispatches to the stage's behavior.
func (d *Driver) runStage(ctx context.Context, rc tools.RunContext, state *taskRun) error {
	switch rc.Stage {
	case models.StageIdeator:
		return d.runIdeator(ctx, rc, state)
	case models.StageDrafter:
		return d.runDrafter(ctx, rc, state)
	case models.StageCritic:
		return d.runCritic(ctx, rc, state)
	case models.StageRevisor:
		return d.runRevisor(ctx, rc, state)
	case models.StageSummarizer:
		return d.runSummarizer(ctx, rc, state)
	default:
		return fmt.Errorf("unroutable stage %q", rc.Stage)
	}
}

// runIdeator attaches the assembled context pack; content passes through.
func (d *Driver) runIdeator(ctx context.Context, rc tools.RunContext, state *taskRun) error {
	pack, err := d.assembler.Build(ctx, rc, rc.UserPrompt)
	if err != nil {
		return err
	}
	state.io.ContextPack = pack
	return nil
}

// runDrafter optionally expands the content through the external provider.
func (d *Driver) runDrafter(ctx context.Context, rc tools.RunContext, state *taskRun) error {
	if d.drafterGenerate == nil {
		return nil
	}
	raw, err := d.drafterGenerate.Execute(ctx, rc, tools.Args{"prompt": state.io.Content})
	if err != nil {
		return err
	}
	generated := raw.(textResult)
	state.io.Content = generated.Text
	state.io.Metadata.ProviderInfo = append(state.io.Metadata.ProviderInfo, generated.Info.AsMap())
	state.attributions = append(state.attributions,
		models.NewAttribution("generated", "", generated.Text, models.StageDrafter, rc.TaskID))
	return nil
}

// runCritic emits truth/safety/voice scores. The entrypoint driver runs the
// critique pass-through; retrieval and provider calls stay optional.
func (d *Driver) runCritic(_ context.Context, _ tools.RunContext, state *taskRun) error {
	state.io.Metadata.CriticScores = &models.CriticScores{Truth: 1, Safety: 1, Voice: 1}
	return nil
}

// runRevisor revises via the transformer-preferred path, then always applies
// punctuation normalization and records the diff in the change log.
func (d *Driver) runRevisor(ctx context.Context, rc tools.RunContext, state *taskRun) error {
	raw, err := d.revisorTransform.Execute(ctx, rc, tools.Args{"text": state.io.Content})
	if err != nil {
		return err
	}
	revised := raw.(textResult)

	normalized, rules := transform.Normalize(revised.Text, d.enforcer.Catalog().PunctuationPolicy())
	rules = mergeRules(revised.Info.Rules, rules)
	if normalized != state.io.Content {
		state.io.Metadata.ChangeLog = append(state.io.Metadata.ChangeLog, models.ChangeLogEntry{
			ChangeID:     uuid.New().String(),
			OriginalText: state.io.Content,
			RevisedText:  normalized,
			Reason:       "punctuation_normalization",
			AppliedBy:    models.StageRevisor,
			Rules:        rules,
			ProviderInfo: revised.Info.AsMap(),
		})
		state.io.Content = normalized
	}
	return nil
}

// runSummarizer runs the mandatory transformer summarize pass, then applies
// punctuation normalization and records it in metadata.
func (d *Driver) runSummarizer(ctx context.Context, rc tools.RunContext, state *taskRun) error {
	raw, err := d.summarizerTransform.Execute(ctx, rc, tools.Args{"text": state.io.Content})
	if err != nil {
		return err
	}
	summarized := raw.(textResult)

	normalized, rules := transform.Normalize(summarized.Text, d.enforcer.Catalog().PunctuationPolicy())
	rules = mergeRules(summarized.Info.Rules, rules)
	if normalized != state.io.Content {
		state.io.Metadata.PunctuationNormalization = &models.PunctuationNormalization{
			Applied:      true,
			Rules:        rules,
			ProviderInfo: summarized.Info.AsMap(),
		}
		state.io.Content = normalized
	}
	return nil
}

// validateStageExecution checks the stage identity and that the governance
// context carries a classification.
func (d *Driver) validateStageExecution(stage models.Stage, classification, taskID string) error {
	if !stage.IsValid() {
		details := map[string]any{"role": string(stage)}
		d.enforcer.Violations().Append(taskID, models.ViolationInvalidStageRole, stage, details)
		return &governance.ViolationError{Kind: models.ViolationInvalidStageRole, Stage: stage, TaskID: taskID, Details: details}
	}
	if classification == "" {
		details := map[string]any{"reason": "missing classification in governance context"}
		d.enforcer.Violations().Append(taskID, "missing_classification", stage, details)
		return &governance.ViolationError{Kind: "missing_classification", Stage: stage, TaskID: taskID, Details: details}
	}
	return nil
}

// validateStageOutput rejects empty stage content. Violations are fatal for
// the task.
func (d *Driver) validateStageOutput(stage models.Stage, content, taskID string) error {
	if isBlank(content) {
		details := map[string]any{"reason": "stage produced empty content"}
		d.enforcer.Violations().Append(taskID, models.ViolationEmptyOutput, stage, details)
		return &governance.ViolationError{Kind: models.ViolationEmptyOutput, Stage: stage, TaskID: taskID, Details: details}
	}
	return nil
}

// mergeRules unions the provider's applied rules with the driver's final
// normalization pass, preserving first-seen order.
func mergeRules(providerRules, driverRules []string) []string {
	seen := make(map[string]bool, len(providerRules)+len(driverRules))
	out := make([]string, 0, len(providerRules)+len(driverRules))
	for _, rule := range providerRules {
		if !seen[rule] {
			seen[rule] = true
			out = append(out, rule)
		}
	}
	for _, rule := range driverRules {
		if !seen[rule] {
			seen[rule] = true
			out = append(out, rule)
		}
	}
	return out
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// buildBundle assembles the final metadata bundle.
func (d *Driver) buildBundle(prompt string, state *taskRun) *models.MetadataBundle {
	md := state.io.Metadata

	var inputSources []models.InputSource
	attributions := append([]models.Attribution(nil), state.attributions...)
	if pack := state.io.ContextPack; pack != nil {
		inputSources = lo.Map(pack.Snippets, func(sn models.ContextSnippet, _ int) models.InputSource {
			return models.InputSource{
				Corpus:    string(sn.Origin),
				SnippetID: sn.Attribution,
				Text:      sn.Text,
				Timestamp: sn.Date,
			}
		})
		attributions = append(attributions, pack.Attributions...)
	}

	keywords := extractLongTailKeywords(state.io.Content)

	voiceScore := 0.0
	if md.CriticScores != nil {
		voiceScore = md.CriticScores.Voice
	}

	return &models.MetadataBundle{
		TaskID:       state.io.TaskID,
		Role:         models.StageSummarizer,
		InputSources: inputSources,
		Attribution:  attributions,
		ToneFlags: models.ToneFlags{
			VoiceMatchScore: voiceScore,
			SEOKeywords:     keywords,
			SafetyFlags:     []string{},
		},
		ChangeLog:        md.ChangeLog,
		LongTailKeywords: keywords,
		TokenStats: models.TokenStats{
			InputTokens:  countTokens(prompt),
			OutputTokens: countTokens(state.io.Content),
		},
		TrimmedSections: []string{},
		FinalOutput:     state.io.Content,
	}
}
