package pipeline

import (
	"regexp"
	"strings"
)

const (
	keywordPhraseLen  = 3
	keywordMinWordLen = 4
	keywordMax        = 5
)

var keywordWordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// extractLongTailKeywords pulls up to five three-word phrases whose words
// are all substantive (at least four characters). Deterministic: phrases
// appear in text order, deduplicated.
func extractLongTailKeywords(text string) []string {
	words := keywordWordRe.FindAllString(strings.ToLower(text), -1)

	seen := make(map[string]bool)
	keywords := []string{}
	for i := 0; i+keywordPhraseLen <= len(words); i++ {
		phrase := words[i : i+keywordPhraseLen]
		qualified := true
		for _, w := range phrase {
			if len(w) < keywordMinWordLen {
				qualified = false
				break
			}
		}
		if !qualified {
			continue
		}
		joined := strings.Join(phrase, " ")
		if seen[joined] {
			continue
		}
		seen[joined] = true
		keywords = append(keywords, joined)
		if len(keywords) == keywordMax {
			break
		}
	}
	return keywords
}
