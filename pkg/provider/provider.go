// Package provider abstracts external text generation behind a
// three-operation contract. One implementation calls a chat-completions
// endpoint; a second is transformer-only for stages that must run without
// any external call.
package provider

import (
	"context"
	"fmt"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// Operation labels attached to provider info for the audit trail.
const (
	OpGenerate  = "generate"
	OpRevise    = "revise"
	OpSummarize = "summarize"
)

// Info attributes a transformation to its producer so the audit trail can
// record who rewrote what.
type Info struct {
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Operation string   `json:"operation,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Rules     []string `json:"rules,omitempty"`
	Note      string   `json:"note,omitempty"`
}

// AsMap renders the info for metadata payloads.
func (i Info) AsMap() map[string]any {
	out := map[string]any{}
	if i.Provider != "" {
		out["provider"] = i.Provider
	}
	if i.Model != "" {
		out["model"] = i.Model
	}
	if i.Operation != "" {
		out["operation"] = i.Operation
	}
	if i.Mode != "" {
		out["mode"] = i.Mode
	}
	if len(i.Rules) > 0 {
		out["rules"] = i.Rules
	}
	if i.Note != "" {
		out["note"] = i.Note
	}
	return out
}

// Params tunes a generate call.
type Params struct {
	Temperature float64
}

// Provider is the external text generator contract.
type Provider interface {
	// Generate produces open-ended text from a prompt.
	Generate(ctx context.Context, prompt string, params Params) (string, Info, error)
	// Revise rewrites text for clarity without semantic change.
	Revise(ctx context.Context, text string, metadata *models.Metadata) (string, Info, error)
	// Summarize compresses text faithfully.
	Summarize(ctx context.Context, text string, metadata *models.Metadata) (string, Info, error)
}

// Error wraps external provider failures (HTTP errors, timeouts, schema
// mismatches) with the failing operation.
type Error struct {
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
