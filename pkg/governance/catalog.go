package governance

import (
	"fmt"

	"github.com/dansasser/mcg-agent/pkg/models"
	"github.com/dansasser/mcg-agent/pkg/transform"
)

// StagePermissions is the immutable per-stage permission record. The
// transformer flags satisfy: required implies access, preferred implies
// access. NewCatalog panics if the table violates that.
type StagePermissions struct {
	Stage                models.Stage
	MaxAPICalls          int
	CorpusAccess         []models.Corpus
	RetrievalAccess      bool
	TransformerAccess    bool
	TransformerPreferred bool
	TransformerRequired  bool
}

// HasCorpus reports whether the stage may query the corpus.
func (p StagePermissions) HasCorpus(c models.Corpus) bool {
	for _, allowed := range p.CorpusAccess {
		if allowed == c {
			return true
		}
	}
	return false
}

// Catalog is the authoritative, read-only policy table. No other component
// may hard-code limits, access sets, or stage order.
type Catalog struct {
	permissions map[models.Stage]StagePermissions
	order       []models.Stage
	punctuation transform.PunctuationPolicy
}

// NewCatalog builds the process-wide policy catalog.
func NewCatalog() *Catalog {
	table := []StagePermissions{
		{
			Stage:             models.StageIdeator,
			MaxAPICalls:       2,
			CorpusAccess:      []models.Corpus{models.CorpusPersonal, models.CorpusSocial, models.CorpusPublished},
			TransformerAccess: true,
		},
		{
			Stage:             models.StageDrafter,
			MaxAPICalls:       1,
			CorpusAccess:      []models.Corpus{models.CorpusSocial, models.CorpusPublished},
			TransformerAccess: true,
		},
		{
			Stage:             models.StageCritic,
			MaxAPICalls:       2,
			CorpusAccess:      []models.Corpus{models.CorpusPersonal, models.CorpusSocial, models.CorpusPublished},
			RetrievalAccess:   true, // only stage with retrieval
			TransformerAccess: true,
		},
		{
			Stage:                models.StageRevisor,
			MaxAPICalls:          1, // fallback only
			CorpusAccess:         nil,
			TransformerAccess:    true,
			TransformerPreferred: true,
		},
		{
			Stage:               models.StageSummarizer,
			MaxAPICalls:         0, // emergency fallback only, requires authorization
			CorpusAccess:        nil,
			TransformerAccess:   true,
			TransformerRequired: true,
		},
	}

	perms := make(map[models.Stage]StagePermissions, len(table))
	order := make([]models.Stage, 0, len(table))
	for _, p := range table {
		if p.TransformerRequired && !p.TransformerAccess {
			panic(fmt.Sprintf("stage %s requires transformer without access", p.Stage))
		}
		if p.TransformerPreferred && !p.TransformerAccess {
			panic(fmt.Sprintf("stage %s prefers transformer without access", p.Stage))
		}
		perms[p.Stage] = p
		order = append(order, p.Stage)
	}

	return &Catalog{
		permissions: perms,
		order:       order,
		punctuation: transform.DefaultPunctuationPolicy(),
	}
}

// PermissionsFor returns the permission record for the stage.
func (c *Catalog) PermissionsFor(stage models.Stage) (StagePermissions, error) {
	p, ok := c.permissions[stage]
	if !ok {
		return StagePermissions{}, fmt.Errorf("no permissions for stage %q", stage)
	}
	return p, nil
}

// StagesInOrder returns the pipeline routing order.
func (c *Catalog) StagesInOrder() []models.Stage {
	out := make([]models.Stage, len(c.order))
	copy(out, c.order)
	return out
}

// PunctuationPolicy returns the canonical punctuation policy applied by the
// deterministic transformer.
func (c *Catalog) PunctuationPolicy() transform.PunctuationPolicy {
	return c.punctuation
}

// ReviseCallTemplate is the fixed instruction used by the Ideator's
// revise-on-failure path.
const ReviseCallTemplate = "System: You are the Ideator. Produce an outline only. No prose.  \n" +
	"Rules: Match this voice and style. Do not invent beyond context. Respect length.  \n" +
	"Voice samples:  \n" +
	"- {{published_sample_1}}  \n" +
	"- {{social_sample_1}}  \n\n" +
	"Context (attributed):  \n" +
	"- {{snippet_1}} [Personal, 2024-11-02]  \n" +
	"- {{snippet_2}} [Published, 2024-03-18]  \n\n" +
	"User prompt: {{user_prompt}}  \n\n" +
	"Current outline failed these checks:  \n" +
	"- Tone: {{tone_issue}}  \n" +
	"- Coverage: {{coverage_issue}}  \n\n" +
	"Revise the outline to fix ONLY these issues. Keep all valid points.  \n" +
	"Output: bullet outline, 5–7 bullets, 1 short headline."

// ReviseCallTemplateText returns the revise-on-failure instruction template.
func (c *Catalog) ReviseCallTemplateText() string { return ReviseCallTemplate }

// Named permissions understood by ValidateStagePermissions. Capability
// permissions map to the permission record; identity permissions pin a tool
// to a specific stage.
const (
	PermCorpusAccess          = "corpus_access"
	PermRetrievalAccess       = "retrieval_access"
	PermTransformerAccess     = "transformer_access"
	PermAPIAccess             = "api_access"
	PermOutlineGeneration     = "outline_generation"
	PermDraftExpansion        = "draft_expansion"
	PermTruthValidation       = "truth_validation"
	PermCorrectionApplication = "correction_application"
	PermContentCompression    = "content_compression"
	PermKeywordExtraction     = "keyword_extraction"
	PermTonePreservation      = "tone_preservation"
)

// hasPermission resolves a named permission against a permission record.
func hasPermission(p StagePermissions, name string) bool {
	switch name {
	case PermCorpusAccess:
		return len(p.CorpusAccess) > 0
	case PermRetrievalAccess:
		return p.RetrievalAccess
	case PermTransformerAccess:
		return p.TransformerAccess
	case PermAPIAccess:
		return p.MaxAPICalls > 0
	case PermOutlineGeneration:
		return p.Stage == models.StageIdeator
	case PermDraftExpansion:
		return p.Stage == models.StageDrafter
	case PermTruthValidation:
		return p.Stage == models.StageCritic
	case PermCorrectionApplication:
		return p.Stage == models.StageRevisor
	case PermContentCompression, PermKeywordExtraction:
		return p.Stage == models.StageSummarizer
	case PermTonePreservation:
		return p.Stage == models.StageRevisor || p.Stage == models.StageDrafter
	default:
		return false
	}
}
