package pipeline

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is the BPE used for token statistics.
const tokenEncoding = "cl100k_base"

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// countTokens counts BPE tokens in text, falling back to a whitespace word
// count when the encoding is unavailable (e.g. offline environments).
func countTokens(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tokenEncoding)
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(strings.Fields(text))
	}
	return len(encoder.Encode(text, nil, nil))
}
