package api

import (
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/models"
)

// ComposeRequest is the prompt-submission body.
type ComposeRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ComposeResponse is the successful pipeline outcome.
type ComposeResponse struct {
	TaskID     string                 `json:"task_id"`
	FinalStage models.Stage           `json:"final_stage"`
	Content    string                 `json:"content"`
	Metadata   *models.MetadataBundle `json:"metadata"`
	Governance governance.Summary     `json:"governance"`
}

// ErrorResponse carries a typed error kind; TaskID is set whenever one was
// allocated so the caller can correlate with audit records.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	TaskID string `json:"task_id,omitempty"`
}
