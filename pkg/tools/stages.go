package tools

import (
	"github.com/dansasser/mcg-agent/pkg/audit"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/models"
)

// Stage-specific constructors pre-set wrapper policies so tool declarations
// read like a per-stage DSL: the Drafter's tools carry the Drafter's corpus
// restriction and call budget without the call site restating them.

// NewIdeatorSearchTool wraps a corpus search usable during ideation: full
// corpus access, no budget consumption.
func NewIdeatorSearchTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions: []string{governance.PermCorpusAccess, governance.PermOutlineGeneration},
		AllowedCorpora:      []models.Corpus{models.CorpusPersonal, models.CorpusSocial, models.CorpusPublished},
	}, enforcer, trail, fn)
}

// NewDrafterSearchTool wraps a corpus search for drafting: social and
// published only.
func NewDrafterSearchTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions: []string{governance.PermCorpusAccess, governance.PermDraftExpansion},
		AllowedCorpora:      []models.Corpus{models.CorpusSocial, models.CorpusPublished},
	}, enforcer, trail, fn)
}

// NewCriticSearchTool wraps a corpus search for critique: full corpus access.
func NewCriticSearchTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions: []string{governance.PermCorpusAccess, governance.PermTruthValidation},
		AllowedCorpora:      []models.Corpus{models.CorpusPersonal, models.CorpusSocial, models.CorpusPublished},
	}, enforcer, trail, fn)
}

// NewDrafterProviderTool wraps an external model call under the Drafter's
// one-call budget.
func NewDrafterProviderTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions: []string{governance.PermAPIAccess, governance.PermDraftExpansion},
		MaxCallsPerTask:     1,
	}, enforcer, trail, fn)
}

// NewCriticProviderTool wraps an external model call under the Critic's
// two-call budget.
func NewCriticProviderTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions: []string{governance.PermAPIAccess, governance.PermTruthValidation},
		MaxCallsPerTask:     2,
	}, enforcer, trail, fn)
}

// NewCriticRetrievalTool wraps a retrieval-endpoint call. Only the Critic
// stage passes its gate.
func NewCriticRetrievalTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions: []string{governance.PermRetrievalAccess, governance.PermTruthValidation},
		RequiresRetrieval:   true,
	}, enforcer, trail, fn)
}

// NewRevisorProviderTool wraps the Revisor's fallback model call.
func NewRevisorProviderTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions: []string{governance.PermAPIAccess, governance.PermCorrectionApplication},
		MaxCallsPerTask:     1,
	}, enforcer, trail, fn)
}

// NewRevisorTransformTool wraps the Revisor's transformer-primary revision.
func NewRevisorTransformTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions:        []string{governance.PermTransformerAccess, governance.PermCorrectionApplication},
		RequiresTransformerPrimary: true,
	}, enforcer, trail, fn)
}

// NewSummarizerTransformTool wraps the Summarizer's mandatory transformer
// pass.
func NewSummarizerTransformTool(name string, enforcer *governance.Enforcer, trail *audit.Trail, fn Func) *GovernedTool {
	return NewGovernedTool(name, Policy{
		RequiredPermissions:        []string{governance.PermTransformerAccess, governance.PermContentCompression},
		RequiresTransformerPrimary: true,
	}, enforcer, trail, fn)
}
