package models

// ChangeLogEntry records one revision applied during the Critic or Revisor
// stage. Entries accumulate in stage metadata and are carried into the final
// bundle unchanged.
type ChangeLogEntry struct {
	ChangeID     string         `json:"change_id"`
	OriginalText string         `json:"original_text"`
	RevisedText  string         `json:"revised_text"`
	Reason       string         `json:"reason"`
	AppliedBy    Stage          `json:"applied_by"` // Critic or Revisor
	Rules        []string       `json:"rules,omitempty"`
	ProviderInfo map[string]any `json:"provider_info,omitempty"`
}

// CriticScores holds the truth/safety/voice evaluation emitted by the Critic.
type CriticScores struct {
	Truth  float64 `json:"truth"`
	Safety float64 `json:"safety"`
	Voice  float64 `json:"voice"`
}

// PunctuationNormalization records the Summarizer-stage normalization result.
type PunctuationNormalization struct {
	Applied      bool           `json:"applied"`
	Rules        []string       `json:"rules,omitempty"`
	ProviderInfo map[string]any `json:"provider_info,omitempty"`
}

// Metadata accumulates across stages. It only ever grows: stages append
// change-log entries and set their own fields, never remove earlier ones.
type Metadata struct {
	ChangeLog                []ChangeLogEntry          `json:"change_log"`
	CriticScores             *CriticScores             `json:"critic_scores,omitempty"`
	PunctuationNormalization *PunctuationNormalization `json:"punctuation_normalization,omitempty"`
	ProviderInfo             []map[string]any          `json:"provider_info,omitempty"`
}

// Clone returns a shallow copy with an independent change log slice, so a
// stage can append without aliasing the previous stage's view.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return &Metadata{}
	}
	out := *m
	out.ChangeLog = append([]ChangeLogEntry(nil), m.ChangeLog...)
	out.ProviderInfo = append([]map[string]any(nil), m.ProviderInfo...)
	return &out
}

// InputSource identifies a corpus snippet that contributed to the output.
type InputSource struct {
	Corpus    string `json:"corpus"`
	SnippetID string `json:"snippet_id"`
	Text      string `json:"source_text"`
	Timestamp string `json:"timestamp"`
}

// ToneFlags carries voice-match scoring and safety annotations.
type ToneFlags struct {
	VoiceMatchScore float64  `json:"voice_match_score"`
	SEOKeywords     []string `json:"seo_keywords"`
	SafetyFlags     []string `json:"safety_flags"`
}

// TokenStats counts tokens in and out of the pipeline.
type TokenStats struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MetadataBundle is the complete provenance record emitted once per task.
type MetadataBundle struct {
	TaskID           string           `json:"task_id"`
	Role             Stage            `json:"role"` // final stage
	InputSources     []InputSource    `json:"input_sources"`
	Attribution      []Attribution    `json:"attribution"`
	ToneFlags        ToneFlags        `json:"tone_flags"`
	ChangeLog        []ChangeLogEntry `json:"change_log"`
	LongTailKeywords []string         `json:"long_tail_keywords"`
	TokenStats       TokenStats       `json:"token_stats"`
	TrimmedSections  []string         `json:"trimmed_sections"`
	FinalOutput      string           `json:"final_output"`
}
