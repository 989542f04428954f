// Package transform implements the deterministic text normalizer used where
// stochastic generation is forbidden. It is purely functional: no I/O, no
// randomness, and idempotent under repeated application.
package transform

// PunctuationPolicy controls which normalization rules run. Rules always
// execute in the fixed order: quotes, ellipsis, terminator collapse,
// space-after-punctuation, exclamation cap. Downstream idempotence relies on
// this order.
type PunctuationPolicy struct {
	NormalizeQuotes              bool
	NormalizeEllipsis            bool
	CollapseRepeatedTerminators  bool
	EnforceSpaceAfterPunctuation bool
	// MaxExclamationsPer100Words caps '!' density; excess exclamations are
	// demoted to '.'. Negative disables the rule.
	MaxExclamationsPer100Words int
}

// DefaultPunctuationPolicy is the conservative policy applied at the Revisor
// and Summarizer stages.
func DefaultPunctuationPolicy() PunctuationPolicy {
	return PunctuationPolicy{
		NormalizeQuotes:              true,
		NormalizeEllipsis:            true,
		CollapseRepeatedTerminators:  true,
		EnforceSpaceAfterPunctuation: true,
		MaxExclamationsPer100Words:   2,
	}
}

// Rule identifiers reported in applied-rules lists and change-log entries.
const (
	RuleNormalizeQuotes              = "normalize_quotes"
	RuleNormalizeEllipsis            = "normalize_ellipsis"
	RuleCollapseRepeatedTerminators  = "collapse_repeated_terminators"
	RuleEnforceSpaceAfterPunctuation = "enforce_space_after_punctuation"
	RuleLimitExclamations            = "limit_exclamations"
)
