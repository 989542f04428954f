// Package models defines the shared domain types for the governed content
// pipeline: stage and corpus identities, context packs, attribution records,
// and the final metadata bundle.
package models

import "fmt"

// Stage identifies one of the five pipeline roles. Every policy decision in
// the governance layer is keyed by stage.
type Stage string

const (
	StageIdeator    Stage = "ideator"
	StageDrafter    Stage = "drafter"
	StageCritic     Stage = "critic"
	StageRevisor    Stage = "revisor"
	StageSummarizer Stage = "summarizer"
)

// IsValid checks if the stage is one of the five pipeline roles.
func (s Stage) IsValid() bool {
	switch s {
	case StageIdeator, StageDrafter, StageCritic, StageRevisor, StageSummarizer:
		return true
	default:
		return false
	}
}

func (s Stage) String() string { return string(s) }

// ParseStage converts a string into a Stage, rejecting unknown roles.
func ParseStage(name string) (Stage, error) {
	s := Stage(name)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown stage role: %q", name)
	}
	return s, nil
}

// AllStages lists the five roles in pipeline order.
func AllStages() []Stage {
	return []Stage{StageIdeator, StageDrafter, StageCritic, StageRevisor, StageSummarizer}
}
