package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dansasser/mcg-agent/pkg/models"
)

func TestCatalog_PermissionTable(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		stage                models.Stage
		maxAPICalls          int
		corpora              []models.Corpus
		retrieval            bool
		transformerAccess    bool
		transformerPreferred bool
		transformerRequired  bool
	}{
		{models.StageIdeator, 2, []models.Corpus{models.CorpusPersonal, models.CorpusSocial, models.CorpusPublished}, false, true, false, false},
		{models.StageDrafter, 1, []models.Corpus{models.CorpusSocial, models.CorpusPublished}, false, true, false, false},
		{models.StageCritic, 2, []models.Corpus{models.CorpusPersonal, models.CorpusSocial, models.CorpusPublished}, true, true, false, false},
		{models.StageRevisor, 1, nil, false, true, true, false},
		{models.StageSummarizer, 0, nil, false, true, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			perms, err := catalog.PermissionsFor(tt.stage)
			require.NoError(t, err)
			assert.Equal(t, tt.maxAPICalls, perms.MaxAPICalls)
			assert.Equal(t, tt.corpora, perms.CorpusAccess)
			assert.Equal(t, tt.retrieval, perms.RetrievalAccess)
			assert.Equal(t, tt.transformerAccess, perms.TransformerAccess)
			assert.Equal(t, tt.transformerPreferred, perms.TransformerPreferred)
			assert.Equal(t, tt.transformerRequired, perms.TransformerRequired)
		})
	}
}

func TestCatalog_OnlyCriticHasRetrieval(t *testing.T) {
	catalog := NewCatalog()
	for _, stage := range catalog.StagesInOrder() {
		perms, err := catalog.PermissionsFor(stage)
		require.NoError(t, err)
		assert.Equal(t, stage == models.StageCritic, perms.RetrievalAccess, "stage %s", stage)
	}
}

func TestCatalog_StageOrder(t *testing.T) {
	catalog := NewCatalog()
	assert.Equal(t, []models.Stage{
		models.StageIdeator,
		models.StageDrafter,
		models.StageCritic,
		models.StageRevisor,
		models.StageSummarizer,
	}, catalog.StagesInOrder())
}

func TestCatalog_UnknownStage(t *testing.T) {
	catalog := NewCatalog()
	_, err := catalog.PermissionsFor(models.Stage("editor"))
	assert.Error(t, err)
}

func TestCatalog_PunctuationPolicy(t *testing.T) {
	policy := NewCatalog().PunctuationPolicy()
	assert.True(t, policy.NormalizeQuotes)
	assert.True(t, policy.NormalizeEllipsis)
	assert.True(t, policy.CollapseRepeatedTerminators)
	assert.True(t, policy.EnforceSpaceAfterPunctuation)
	assert.Equal(t, 2, policy.MaxExclamationsPer100Words)
}

func TestCatalog_ReviseCallTemplate(t *testing.T) {
	tmpl := NewCatalog().ReviseCallTemplateText()
	assert.Contains(t, tmpl, "{{user_prompt}}")
	assert.Contains(t, tmpl, "outline")
}

func TestHasPermission_StageIdentity(t *testing.T) {
	catalog := NewCatalog()
	ideator, _ := catalog.PermissionsFor(models.StageIdeator)
	critic, _ := catalog.PermissionsFor(models.StageCritic)
	summarizer, _ := catalog.PermissionsFor(models.StageSummarizer)

	assert.True(t, hasPermission(ideator, PermOutlineGeneration))
	assert.False(t, hasPermission(critic, PermOutlineGeneration))
	assert.True(t, hasPermission(critic, PermTruthValidation))
	assert.True(t, hasPermission(summarizer, PermContentCompression))
	assert.True(t, hasPermission(summarizer, PermKeywordExtraction))
	assert.False(t, hasPermission(summarizer, PermAPIAccess)) // budget is zero
	assert.False(t, hasPermission(ideator, "unknown_permission"))
}
