package provider

import (
	"context"
	"errors"

	"github.com/dansasser/mcg-agent/pkg/models"
	"github.com/dansasser/mcg-agent/pkg/transform"
)

// TransformerMode selects how the deterministic provider behaves.
type TransformerMode string

const (
	// TransformerPunctuationOnly applies the punctuation rules. Default.
	TransformerPunctuationOnly TransformerMode = "punctuation_only"
	// TransformerNoop returns input unchanged.
	TransformerNoop TransformerMode = "noop"
	// TransformerHTTP is a declared-but-inert endpoint mode; it returns
	// input unchanged until an endpoint exists.
	TransformerHTTP TransformerMode = "http"
)

// IsValid checks if the mode is known (empty means the default).
func (m TransformerMode) IsValid() bool {
	switch m {
	case "", TransformerPunctuationOnly, TransformerNoop, TransformerHTTP:
		return true
	default:
		return false
	}
}

// Transformer is the deterministic, in-process provider used by stages that
// must run without an external model call. Revise and Summarize apply the
// punctuation normalizer; Generate is unsupported.
type Transformer struct {
	mode   TransformerMode
	policy transform.PunctuationPolicy
}

// NewTransformer builds the deterministic provider.
func NewTransformer(mode TransformerMode, policy transform.PunctuationPolicy) *Transformer {
	if mode == "" {
		mode = TransformerPunctuationOnly
	}
	return &Transformer{mode: mode, policy: policy}
}

// Generate is not supported by the deterministic provider.
func (t *Transformer) Generate(context.Context, string, Params) (string, Info, error) {
	return "", Info{}, &Error{Operation: OpGenerate, Err: errors.New("transformer provider cannot generate")}
}

// Revise applies the punctuation rules (or passes through per mode).
func (t *Transformer) Revise(_ context.Context, text string, _ *models.Metadata) (string, Info, error) {
	return t.apply(text, OpRevise)
}

// Summarize behaves like Revise: deterministic normalization, no
// compression model.
func (t *Transformer) Summarize(_ context.Context, text string, _ *models.Metadata) (string, Info, error) {
	return t.apply(text, OpSummarize)
}

func (t *Transformer) apply(text, op string) (string, Info, error) {
	switch t.mode {
	case TransformerNoop:
		return text, Info{Provider: "transformer", Mode: string(t.mode), Operation: op}, nil
	case TransformerHTTP:
		return text, Info{
			Provider:  "transformer",
			Mode:      string(t.mode),
			Operation: op,
			Note:      "http mode not yet implemented",
		}, nil
	default:
		out, rules := transform.Normalize(text, t.policy)
		return out, Info{Provider: "transformer", Mode: string(TransformerPunctuationOnly), Operation: op, Rules: rules}, nil
	}
}
