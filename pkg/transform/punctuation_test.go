package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_SmartQuotes(t *testing.T) {
	out, applied := Normalize("She said “hello” and ‘bye’", DefaultPunctuationPolicy())
	assert.Equal(t, `She said "hello" and 'bye'`, out)
	assert.Contains(t, applied, RuleNormalizeQuotes)
}

func TestNormalize_Ellipsis(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unicode ellipsis", "wait… ok", "wait... ok"},
		{"four dots", "wait.... ok", "wait... ok"},
		{"many dots", "wait.......... ok", "wait... ok"},
		{"exactly three", "wait... ok", "wait... ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := Normalize(tt.input, DefaultPunctuationPolicy())
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNormalize_TerminatorCollapse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bang run", "Stop!!!", "Stop!"},
		{"question run", "Why??", "Why?"},
		{"mixed question first", "Really??!", "Really?!"},
		{"mixed bang first", "No!?!?", "No!?"},
		{"stable pair", "So?!", "So?!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := Normalize(tt.input, DefaultPunctuationPolicy())
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNormalize_SpaceAfterPunctuation(t *testing.T) {
	out, _ := Normalize("Done.Next one!Go", DefaultPunctuationPolicy())
	assert.Equal(t, "Done. Next one! Go", out)
}

func TestNormalize_SpaceAfterPunctuationSimple(t *testing.T) {
	out, applied := Normalize("Hi.there", PunctuationPolicy{EnforceSpaceAfterPunctuation: true, MaxExclamationsPer100Words: -1})
	assert.Equal(t, "Hi. there", out)
	assert.Contains(t, applied, RuleEnforceSpaceAfterPunctuation)
}

func TestNormalize_ExclamationCap(t *testing.T) {
	// Five words, cap 2 per 100 words => 2 allowed; the last two demoted.
	out, applied := Normalize("One! Two! Three! Four! Five", DefaultPunctuationPolicy())
	assert.Equal(t, "One! Two! Three. Four. Five", out)
	assert.Contains(t, applied, RuleLimitExclamations)
}

func TestNormalize_ScenarioPunctuation(t *testing.T) {
	in := "Wow!!! This is “great”… right??!"
	out, applied := Normalize(in, DefaultPunctuationPolicy())
	assert.Equal(t, `Wow! This is "great"... right?!`, out)
	assert.Contains(t, applied, RuleNormalizeQuotes)
	assert.Contains(t, applied, RuleCollapseRepeatedTerminators)
	assert.Contains(t, applied, RuleNormalizeEllipsis)
	assert.Contains(t, applied, RuleEnforceSpaceAfterPunctuation)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello world!",
		"Wow!!! This is “great”… right??!",
		"Dots....... and bangs!!!! and mixed?!?!?!",
		"One! Two! Three! Four! Five! Six! Seven!",
		"No punctuation at all",
	}
	policy := DefaultPunctuationPolicy()
	for _, in := range inputs {
		once, _ := Normalize(in, policy)
		twice, _ := Normalize(once, policy)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestNormalize_DisabledRules(t *testing.T) {
	out, applied := Normalize("Stop!!!", PunctuationPolicy{MaxExclamationsPer100Words: -1})
	assert.Equal(t, "Stop!!!", out)
	assert.Empty(t, applied)
}

func TestNormalize_NoChangeNoRules(t *testing.T) {
	out, applied := Normalize("Hello world!", DefaultPunctuationPolicy())
	assert.Equal(t, "Hello world!", out)
	// Only the unconditional space-after marker may appear.
	for _, rule := range applied {
		assert.Equal(t, RuleEnforceSpaceAfterPunctuation, rule)
	}
}
