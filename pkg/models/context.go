package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Attribution is an immutable record binding a piece of content to its
// source. Records are appended to the context pack and the final bundle and
// never mutated afterwards.
type Attribution struct {
	AttributionID  string         `json:"attribution_id"`
	SourceType     string         `json:"source_type"` // "corpus", "retrieval", "generated", "user_input"
	SourceID       string         `json:"source_id,omitempty"`
	ContentHash    string         `json:"content_hash"`
	ProducingStage Stage          `json:"producing_stage"`
	TaskID         string         `json:"task_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewAttribution builds an attribution record with a fresh id and the
// SHA-256 hash of the attributed content.
func NewAttribution(sourceType, sourceID, content string, stage Stage, taskID string) Attribution {
	return Attribution{
		AttributionID:  uuid.New().String(),
		SourceType:     sourceType,
		SourceID:       sourceID,
		ContentHash:    HashContent(content),
		ProducingStage: stage,
		TaskID:         taskID,
		Timestamp:      time.Now().UTC(),
	}
}

// HashContent returns the SHA-256 hex digest of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ContextSnippet is the common projection of a corpus row or retrieval
// result. Insertion order is preserved to stabilise downstream consumption.
type ContextSnippet struct {
	Text        string        `json:"text"`
	Origin      SnippetOrigin `json:"origin"`
	Date        string        `json:"date"` // ISO date of the underlying row
	Tags        []string      `json:"tags,omitempty"`
	VoiceTerms  []string      `json:"voice_terms,omitempty"`
	Attribution string        `json:"attribution"`
	Notes       string        `json:"notes,omitempty"`
}

// ContextPack is the ordered, attributed snippet sequence assembled once per
// task. Snippets are appended only by the context assembler during the
// Ideator stage; all later stages consume the pack read-only.
type ContextPack struct {
	ContextID      string           `json:"context_id"`
	TaskID         string           `json:"task_id"`
	CreatedAt      time.Time        `json:"created_at"`
	Classification string           `json:"classification"`
	Snippets       []ContextSnippet `json:"snippets"`
	Attributions   []Attribution    `json:"attributions"`

	CoverageScore *float64 `json:"coverage_score,omitempty"`
	ToneScore     *float64 `json:"tone_score,omitempty"`
	DiversityOK   *bool    `json:"diversity_ok,omitempty"`
}

// NewContextPack creates an empty pack for the task.
func NewContextPack(taskID, classification string) *ContextPack {
	return &ContextPack{
		ContextID:      uuid.New().String(),
		TaskID:         taskID,
		CreatedAt:      time.Now().UTC(),
		Classification: classification,
	}
}

// AddSnippets appends snippets in order and records an attribution for each.
func (p *ContextPack) AddSnippets(snippets []ContextSnippet, stage Stage) {
	for _, sn := range snippets {
		p.Snippets = append(p.Snippets, sn)
		p.Attributions = append(p.Attributions, Attribution{
			AttributionID:  uuid.New().String(),
			SourceType:     "corpus",
			SourceID:       sn.Attribution,
			ContentHash:    HashContent(sn.Text),
			ProducingStage: stage,
			TaskID:         p.TaskID,
			Timestamp:      time.Now().UTC(),
			Metadata:       map[string]any{"origin": string(sn.Origin)},
		})
	}
}

// CountByOrigin returns the number of snippets per origin label.
func (p *ContextPack) CountByOrigin() map[SnippetOrigin]int {
	counts := make(map[SnippetOrigin]int)
	for _, sn := range p.Snippets {
		counts[sn.Origin]++
	}
	return counts
}
